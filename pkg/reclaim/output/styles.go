package output

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/reclaimtool/reclaim/pkg/reclaim/types"
)

// Color constants using ANSI 256-color palette.
// These provide a consistent color scheme across all formatters.
const (
	// ColorPrimary is used for primary elements like headers (bright blue).
	ColorPrimary = lipgloss.Color("39")

	// ColorSuccess is used for positive status indicators (green).
	ColorSuccess = lipgloss.Color("42")

	// ColorWarning is used for warning messages (orange/yellow).
	ColorWarning = lipgloss.Color("214")

	// ColorDanger is used for delete suggestions and errors (red).
	ColorDanger = lipgloss.Color("196")

	// ColorMuted is used for less important or secondary text (gray).
	ColorMuted = lipgloss.Color("245")

	// ColorAccent is used for duplicate groups (magenta).
	ColorAccent = lipgloss.Color("170")
)

// Box styles for containing grouped content.
var (
	// HeaderBox is the style for the header section containing scan info.
	HeaderBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 1).
			MarginBottom(1)

	// FooterBox is the style for the footer section containing summary info.
	FooterBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted).
			Padding(0, 1).
			MarginTop(1)
)

// Text styles for various content types.
var (
	// TitleStyle is used for major section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	// LabelStyle is used for field labels (e.g., "Session:", "Files:").
	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// ValueStyle is used for field values.
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	// SuccessStyle is used for positive status text.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	// WarningStyle is used for warning text.
	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// MutedStyle is used for less important text.
	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// PathStyle is used for file paths.
	PathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	// SizeStyle is used for byte sizes.
	SizeStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	// KeeperStyle marks the retained member of a duplicate group.
	KeeperStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	// TableHeaderStyle is used for table column headers.
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorMuted)
)

// categoryColors maps each cleanup category to its display color.
var categoryColors = map[types.Category]lipgloss.Color{
	types.CategoryDevArtifact: ColorSuccess,
	types.CategoryTemp:        ColorWarning,
	types.CategoryLargeMedia:  ColorPrimary,
	types.CategoryArchive:     ColorPrimary,
	types.CategoryOther:       ColorMuted,
}

// CategoryStyle returns the style for rendering a category tag.
func CategoryStyle(c types.Category) lipgloss.Style {
	color, ok := categoryColors[c]
	if !ok {
		color = ColorMuted
	}
	return lipgloss.NewStyle().Foreground(color).Bold(true)
}

// ActionStyle returns the style for rendering a suggested action.
func ActionStyle(a types.Action) lipgloss.Style {
	switch a {
	case types.ActionDelete:
		return lipgloss.NewStyle().Foreground(ColorDanger)
	case types.ActionRelocate:
		return lipgloss.NewStyle().Foreground(ColorAccent)
	case types.ActionReview:
		return lipgloss.NewStyle().Foreground(ColorWarning)
	default:
		return MutedStyle
	}
}
