package bulletin

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"
)

// scheduleParser accepts the classic five-field cron syntax
var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Announcement is a recurring broadcast defined in the bulletin file
type Announcement struct {
	Schedule string `json:"schedule"`
	Body     string `json:"body"`
}

// Bulletin is the parsed contents of a bulletin file
type Bulletin struct {
	MOTD          string         `json:"motd,omitempty"`
	Announcements []Announcement `json:"announcements,omitempty"`
}

// Loader loads and validates bulletin files
type Loader struct {
	logger       zerolog.Logger
	schemaLoader gojsonschema.JSONLoader
}

// NewLoader creates a new bulletin loader
func NewLoader(logger zerolog.Logger) *Loader {
	schemaLoader := gojsonschema.NewStringLoader(BulletinSchema)
	return &Loader{
		logger:       logger.With().Str("component", "bulletin-loader").Logger(),
		schemaLoader: schemaLoader,
	}
}

// LoadFile loads and validates a bulletin from a file
func (l *Loader) LoadFile(path string) (*Bulletin, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bulletin file: %w", err)
	}
	return l.Parse(data)
}

// Parse parses and validates bulletin JSON
func (l *Loader) Parse(data []byte) (*Bulletin, error) {
	var b Bulletin
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse bulletin JSON: %w", err)
	}

	if err := l.validateSchema(data); err != nil {
		return nil, fmt.Errorf("bulletin schema validation failed: %w", err)
	}

	if err := l.validateBulletin(&b); err != nil {
		return nil, fmt.Errorf("bulletin validation failed: %w", err)
	}

	l.logger.Debug().
		Int("announcements", len(b.Announcements)).
		Bool("motd", b.MOTD != "").
		Msg("Loaded bulletin")

	return &b, nil
}

// validateSchema validates the bulletin against the JSON schema
func (l *Loader) validateSchema(data []byte) error {
	documentLoader := gojsonschema.NewBytesLoader(data)
	result, err := gojsonschema.Validate(l.schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}

	if !result.Valid() {
		// Collect all validation errors
		var errMsg string
		for i, err := range result.Errors() {
			if i > 0 {
				errMsg += "; "
			}
			errMsg += err.String()
		}
		return fmt.Errorf("schema validation errors: %s", errMsg)
	}

	return nil
}

// validateBulletin performs additional validation beyond JSON schema
func (l *Loader) validateBulletin(b *Bulletin) error {
	for i, ann := range b.Announcements {
		if _, err := scheduleParser.Parse(ann.Schedule); err != nil {
			return fmt.Errorf("announcement %d: invalid schedule %q: %w", i, ann.Schedule, err)
		}
		if strings.TrimSpace(ann.Body) == "" {
			return fmt.Errorf("announcement %d: body cannot be blank", i)
		}
	}
	return nil
}
