// Package ui provides terminal styling helpers for the barakah CLI.
package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	faintStyle  = lipgloss.NewStyle().Faint(true)
)

// RenderAccent styles s as a highlighted heading or marker.
func RenderAccent(s string) string { return accentStyle.Render(s) }

// RenderPass styles s as a success marker.
func RenderPass(s string) string { return passStyle.Render(s) }

// RenderWarn styles s as a warning marker.
func RenderWarn(s string) string { return warnStyle.Render(s) }

// RenderFail styles s as a failure marker.
func RenderFail(s string) string { return failStyle.Render(s) }

// RenderFaint styles s as secondary detail.
func RenderFaint(s string) string { return faintStyle.Render(s) }
