package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactEmail(t *testing.T) {
	got := Redact("login failed for jane.doe+test@example.co.uk from web")
	assert.Equal(t, "login failed for [redacted] from web", got)
}

func TestRedactPhone(t *testing.T) {
	cases := []string{
		"callback requested at +1 (555) 123-4567 today",
		"callback requested at 555-123-4567 today",
	}
	for _, in := range cases {
		got := Redact(in)
		assert.Equal(t, "callback requested at [redacted] today", got, "input: %s", in)
	}
}

func TestRedactMultiple(t *testing.T) {
	got := Redact("a@b.com and c@d.org")
	assert.Equal(t, "[redacted] and [redacted]", got)
}

func TestRedactLeavesPlainText(t *testing.T) {
	in := "slot upserted for Monday 09:00-17:00"
	assert.Equal(t, in, Redact(in))
}

func TestRedactEmpty(t *testing.T) {
	assert.Equal(t, "", Redact(""))
}
