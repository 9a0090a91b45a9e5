// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// QUERY MODE
// =============================================================================

// QueryMode selects the retrieval strategy the backend uses for a query.
type QueryMode string

const (
	ModeHybrid QueryMode = "hybrid"
	ModeLocal  QueryMode = "local"
	ModeGlobal QueryMode = "global"
	ModeNaive  QueryMode = "naive"
)

// QueryModes lists all valid modes in display order.
func QueryModes() []QueryMode {
	return []QueryMode{ModeHybrid, ModeLocal, ModeGlobal, ModeNaive}
}

// Valid reports whether the mode is one of the known retrieval strategies.
func (m QueryMode) Valid() bool {
	switch m {
	case ModeHybrid, ModeLocal, ModeGlobal, ModeNaive:
		return true
	}
	return false
}

// =============================================================================
// CHAT SETTINGS
// =============================================================================

// ChatSettings holds the per-session query parameters.
type ChatSettings struct {
	Mode         QueryMode `json:"mode"`
	TopK         int       `json:"top_k"`
	Citations    bool      `json:"citations"`
	SystemPrompt string    `json:"system_prompt"`
}

// DefaultSettings returns the settings a fresh session starts with.
func DefaultSettings() ChatSettings {
	return ChatSettings{
		Mode:      ModeHybrid,
		TopK:      10,
		Citations: true,
	}
}

// Normalize clamps invalid values back into range. Unknown modes fall back
// to hybrid, TopK is clamped to at least 1.
func (s ChatSettings) Normalize() ChatSettings {
	if !s.Mode.Valid() {
		s.Mode = ModeHybrid
	}
	if s.TopK < 1 {
		s.TopK = 1
	}
	return s
}

// SettingsPatch is a partial update to chat settings. Nil fields are left
// untouched.
type SettingsPatch struct {
	Mode         *QueryMode
	TopK         *int
	Citations    *bool
	SystemPrompt *string
}

// Apply returns a copy of s with the patch applied and normalized.
func (p SettingsPatch) Apply(s ChatSettings) ChatSettings {
	if p.Mode != nil {
		s.Mode = *p.Mode
	}
	if p.TopK != nil {
		s.TopK = *p.TopK
	}
	if p.Citations != nil {
		s.Citations = *p.Citations
	}
	if p.SystemPrompt != nil {
		s.SystemPrompt = *p.SystemPrompt
	}
	return s.Normalize()
}
