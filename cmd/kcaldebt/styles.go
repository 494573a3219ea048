package kcaldebt

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	debtStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	creditStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	bonusStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
)

// signed colors a kcal amount by which side of the ledger it lands on.
func signed(v float64) string {
	s := formatKCal(v)
	if v < 0 {
		return debtStyle.Render(s)
	}
	return creditStyle.Render(s)
}

func label(s string) string {
	return labelStyle.Render(s)
}
