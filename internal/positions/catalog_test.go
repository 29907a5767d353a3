package positions

import (
	"context"
	"strings"
	"testing"
	"time"

	"applybot/internal/common"
)

const sampleCatalog = `
Moderator:
  questions:
    - "Why?"
    - "Experience?"
  time_limit_minutes: 45
  accept_roles: ["staff"]
  accepted_roles: ["moderator"]
  review_channel: "mod-apps"
Helper:
  enabled: false
  questions:
    - "Why?"
  welcome_message: "Custom welcome for {position}."
`

func TestParseResolvesDefaults(t *testing.T) {
	catalog, err := Parse([]byte(sampleCatalog))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	mod, err := catalog.Get(context.Background(), "Moderator")
	if err != nil {
		t.Fatalf("get moderator: %v", err)
	}
	if !mod.Enabled {
		t.Fatal("enabled should default to true")
	}
	if mod.TimeLimit != 45*time.Minute {
		t.Fatalf("time limit = %v, want 45m", mod.TimeLimit)
	}
	if len(mod.Questions) != 2 {
		t.Fatalf("questions = %d, want 2", len(mod.Questions))
	}
	if !strings.Contains(mod.WelcomeMessage, "Moderator") {
		t.Fatalf("welcome message not rendered: %q", mod.WelcomeMessage)
	}
	if strings.Contains(mod.WelcomeMessage, "{position}") {
		t.Fatalf("placeholder left in welcome message: %q", mod.WelcomeMessage)
	}

	helper, err := catalog.Get(context.Background(), "Helper")
	if err != nil {
		t.Fatalf("get helper: %v", err)
	}
	if helper.Enabled {
		t.Fatal("helper should be disabled")
	}
	if helper.TimeLimit != 60*time.Minute {
		t.Fatalf("time limit = %v, want default 60m", helper.TimeLimit)
	}
	if helper.WelcomeMessage != "Custom welcome for Helper." {
		t.Fatalf("custom welcome = %q", helper.WelcomeMessage)
	}
}

func TestGetUnknownPosition(t *testing.T) {
	catalog, err := Parse([]byte(sampleCatalog))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	_, err = catalog.Get(context.Background(), "Astronaut")
	if !common.Is(err, common.CodeNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestListIsStable(t *testing.T) {
	catalog, err := Parse([]byte(sampleCatalog))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	items, err := catalog.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 || items[0].Name != "Helper" || items[1].Name != "Moderator" {
		t.Fatalf("unexpected order: %+v", items)
	}
}
