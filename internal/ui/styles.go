// Package ui holds the lipgloss styles shared by the clang-tui screens.
package ui

import "github.com/charmbracelet/lipgloss"

// Palette.
var (
	ColorAccent = lipgloss.Color("#5FD7FF")
	ColorSelf   = lipgloss.Color("#5F87FF")
	ColorHost   = lipgloss.Color("#D787FF")
	ColorLive   = lipgloss.Color("#5FD75F")
	ColorRec    = lipgloss.Color("#FF5F5F")
	ColorWarn   = lipgloss.Color("#FFD75F")
	ColorMuted  = lipgloss.Color("#767676")
	ColorFaint  = lipgloss.Color("#444444")
	ColorBright = lipgloss.Color("#EEEEEE")
)

// Chrome shared by every screen.
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorBright).
			Bold(true)

	PanelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	DividerStyle = lipgloss.NewStyle().
			Foreground(ColorFaint)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(ColorHost)

	FooterKeyStyle = lipgloss.NewStyle().
			Foreground(ColorWarn).
			Bold(true)

	// FooterKeyDisabledStyle marks a key that does nothing right now, e.g.
	// Space while someone else has the floor.
	FooterKeyDisabledStyle = lipgloss.NewStyle().
				Foreground(ColorFaint).
				Strikethrough(true)

	FooterDescStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRec).
			Bold(true)

	ErrorTextStyle = lipgloss.NewStyle().
			Foreground(ColorRec)
)

// Room status bar.
var (
	StatusStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	RecordingDotStyle = lipgloss.NewStyle().
				Foreground(ColorRec).
				Bold(true)

	ConnectedDotStyle = lipgloss.NewStyle().
				Foreground(ColorLive)

	IdleDotStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	HostBadgeStyle = lipgloss.NewStyle().
			Foreground(ColorHost).
			Bold(true)

	FollowBadgeStyle = lipgloss.NewStyle().
				Foreground(ColorLive).
				Bold(true)

	ScrollBadgeStyle = lipgloss.NewStyle().
				Foreground(ColorWarn).
				Bold(true)

	NoticeStyle = lipgloss.NewStyle().
			Foreground(ColorWarn)

	// PromptStyle frames the host exit confirmation.
	PromptStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorWarn).
			Padding(0, 1)
)

// Transcript.
var (
	TimestampStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// PartialTextStyle renders live lines that are not final yet.
	PartialTextStyle = lipgloss.NewStyle().
				Foreground(ColorWarn)

	SelfSpeakerStyle = lipgloss.NewStyle().
				Foreground(ColorSelf).
				Bold(true)

	OtherSpeakerStyle = lipgloss.NewStyle().
				Foreground(ColorAccent)
)

// SpeakerStyle picks the tag style for a transcript line.
func SpeakerStyle(self bool) lipgloss.Style {
	if self {
		return SelfSpeakerStyle
	}
	return OtherSpeakerStyle
}
