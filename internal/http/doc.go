// Package http exposes the organist rotation engine over JSON.
//
// Routes (dates are civil dates formatted AAAA-MM-DD):
//   - GET /churches/{church}/cycles/{cycle}: working copy of a cycle.
//     POST .../musicians {"musician_id"}, POST .../moves {"from","to"},
//     DELETE .../items/{index} and POST .../save edit and persist it.
//   - POST /churches/{church}/rotation/preview: generates an unsaved rotation.
//     Body: {"start_date","end_date","period_months","starting_cycle",
//     "starting_musician_id"}, every field optional. Responds with items and gaps.
//   - POST /churches/{church}/rotation/regenerate {"from_date"}: rewrites saved
//     schedules from the cutover date on.
//   - GET and POST /churches/{church}/schedules, GET, PUT and DELETE
//     /schedules/{id}: saved schedules (escalas). A POST without "items"
//     generates the rotation for the period.
//   - GET /schedules/{id}/export and POST /churches/{church}/schedules/import:
//     semicolon separated exchange files.
//   - GET /churches/{church}/dashboard?start=&end=: coverage snapshot, the
//     current month by default.
//
// Errors are JSON bodies {"error_code","message","errors"} with messages in
// Portuguese. Every response carries an X-Request-ID header.
package http
