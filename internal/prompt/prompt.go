// Package prompt renders sleep records into the advice request sent to the model.
package prompt

import (
	"fmt"
	"strings"
)

const (
	DefaultLanguage = "Korean"
	DefaultTone     = "friendly"
)

const template = `Below are the user's sleep records for the last %d days:
%s

Based on the data above:
1. Briefly analyze the user's sleep pattern (for example average sleep duration, regularity, notable events).
2. Suggest three concrete ways to improve sleep quality.

Please answer in %s, in a %s tone.`

// Builder holds the response language and tone requested from the model.
type Builder struct {
	Language string
	Tone     string
}

// Build renders the prompt with the default language and tone.
func Build(records string, days int) string {
	return Builder{}.Build(records, days)
}

// Build embeds records verbatim; days is not validated.
func (b Builder) Build(records string, days int) string {
	language := strings.TrimSpace(b.Language)
	if language == "" {
		language = DefaultLanguage
	}
	tone := strings.TrimSpace(b.Tone)
	if tone == "" {
		tone = DefaultTone
	}
	return fmt.Sprintf(template, days, records, language, tone)
}
