package positions

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"applybot/internal/common"
	"applybot/internal/domain/position"
)

const defaultTimeLimitMinutes = 60

// positionYAML mirrors one entry of the catalog file. Durations are minutes,
// matching how operators think about application time limits.
type positionYAML struct {
	Enabled          *bool    `yaml:"enabled"`
	Questions        []string `yaml:"questions"`
	TimeLimitMinutes int      `yaml:"time_limit_minutes"`

	WelcomeMessage    string `yaml:"welcome_message"`
	CompletionMessage string `yaml:"completion_message"`
	AcceptedMessage   string `yaml:"accepted_message"`
	DeniedMessage     string `yaml:"denied_message"`

	RequiredRoles   []string `yaml:"required_roles"`
	RestrictedRoles []string `yaml:"restricted_roles"`

	AcceptRoles       []string `yaml:"accept_roles"`
	DenyRoles         []string `yaml:"deny_roles"`
	AcceptReasonRoles []string `yaml:"accept_reason_roles"`
	DenyReasonRoles   []string `yaml:"deny_reason_roles"`

	AcceptedRoles        []string `yaml:"accepted_roles"`
	AcceptedRemovalRoles []string `yaml:"accepted_removal_roles"`
	DeniedRoles          []string `yaml:"denied_roles"`
	DeniedRemovalRoles   []string `yaml:"denied_removal_roles"`

	ReviewChannel string   `yaml:"review_channel"`
	PingRoles     []string `yaml:"ping_roles"`
}

// Catalog is an in-memory, read-only position.Source loaded from a YAML file.
// Defaults are resolved once here, never at the point of use.
type Catalog struct {
	byName map[string]position.Config
	names  []string
}

func LoadFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read positions file: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Catalog, error) {
	entries := make(map[string]positionYAML)
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse positions file: %w", err)
	}

	catalog := &Catalog{byName: make(map[string]position.Config, len(entries))}
	for name, entry := range entries {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("position with empty name")
		}
		catalog.byName[name] = resolve(name, entry)
		catalog.names = append(catalog.names, name)
	}
	sort.Strings(catalog.names)
	return catalog, nil
}

func (c *Catalog) Get(_ context.Context, name string) (*position.Config, error) {
	cfg, ok := c.byName[name]
	if !ok {
		return nil, common.NewError(common.CodeNotFound, "position not found", nil)
	}
	return &cfg, nil
}

func (c *Catalog) List(_ context.Context) ([]position.Config, error) {
	result := make([]position.Config, 0, len(c.names))
	for _, name := range c.names {
		result = append(result, c.byName[name])
	}
	return result, nil
}

func resolve(name string, entry positionYAML) position.Config {
	enabled := true
	if entry.Enabled != nil {
		enabled = *entry.Enabled
	}
	minutes := entry.TimeLimitMinutes
	if minutes <= 0 {
		minutes = defaultTimeLimitMinutes
	}
	return position.Config{
		Name:      name,
		Enabled:   enabled,
		Questions: append([]string(nil), entry.Questions...),
		TimeLimit: time.Duration(minutes) * time.Minute,

		WelcomeMessage: render(entry.WelcomeMessage, name,
			"Welcome to the {position} application process! Please answer the following questions to complete your application."),
		CompletionMessage: render(entry.CompletionMessage, name,
			"Thank you for completing your {position} application! Your responses have been submitted and will be reviewed soon."),
		AcceptedMessage: render(entry.AcceptedMessage, name,
			"Congratulations! Your application for {position} has been accepted."),
		DeniedMessage: render(entry.DeniedMessage, name,
			"Thank you for applying for {position}. After careful consideration, we have decided not to move forward with your application at this time."),

		RequiredRoles:   entry.RequiredRoles,
		RestrictedRoles: entry.RestrictedRoles,

		AcceptRoles:       entry.AcceptRoles,
		DenyRoles:         entry.DenyRoles,
		AcceptReasonRoles: entry.AcceptReasonRoles,
		DenyReasonRoles:   entry.DenyReasonRoles,

		AcceptedRoles:        entry.AcceptedRoles,
		AcceptedRemovalRoles: entry.AcceptedRemovalRoles,
		DeniedRoles:          entry.DeniedRoles,
		DeniedRemovalRoles:   entry.DeniedRemovalRoles,

		ReviewChannel: entry.ReviewChannel,
		PingRoles:     entry.PingRoles,
	}
}

func render(template, name, fallback string) string {
	if strings.TrimSpace(template) == "" {
		template = fallback
	}
	return strings.ReplaceAll(template, "{position}", name)
}
