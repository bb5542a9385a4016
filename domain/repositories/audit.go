package repositories

import "github.com/jeffaf/voxx/domain/entities"

// AuditSink receives one record per terminal session. Implementations must
// be safe for concurrent appenders; ordering across sessions is not
// guaranteed.
type AuditSink interface {
	Append(record entities.AuditRecord)
}
