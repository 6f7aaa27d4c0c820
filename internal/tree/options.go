package tree

import (
	"io"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/roach88/treestore/internal/ir"
)

// Clock supplies timestamps for ctime and mtime.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Validator checks a payload before it is saved at path.
type Validator interface {
	Validate(path string, data ir.Object) error
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the timestamp source. Defaults to the system clock.
func WithClock(c Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithLogger sets the logger for write operations. Defaults to discarding.
func WithLogger(l log.FieldLogger) Option {
	return func(s *Store) { s.log = l }
}

// WithValidator installs a payload validator run on every Save.
func WithValidator(v Validator) Option {
	return func(s *Store) { s.validator = v }
}

// WithIDGenerator replaces UUIDv7 node ID generation.
func WithIDGenerator(gen func() (string, error)) Option {
	return func(s *Store) { s.newID = gen }
}

func discardLogger() log.FieldLogger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

func newUUIDv7() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
