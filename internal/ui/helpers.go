package ui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"ollamachat/internal/styles"
)

func WrappedLineCount(value string, width int) int {
	if width <= 0 {
		return 1
	}
	lines := strings.Split(value, "\n")
	if len(lines) == 0 {
		return 1
	}
	count := 0
	for _, line := range lines {
		w := runewidth.StringWidth(line)
		if w == 0 {
			count++
			continue
		}
		count += (w-1)/width + 1
	}
	return count
}

func PromptPreview(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.Join(strings.Fields(s), " ")
	const maxRunes = 500
	r := []rune(s)
	if len(r) > maxRunes {
		return string(r[:maxRunes])
	}
	return s
}

func TruncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return "…"
	}
	return string(r[:max-1]) + "…"
}

// SyncModelViewportScroll keeps the selected model row visible.
func (m *Model) SyncModelViewportScroll() {
	const itemHeight = 1

	top := m.SelectedModelIndex * itemHeight
	if top+itemHeight > m.ModelViewport.YOffset+m.ModelViewport.Height {
		m.ModelViewport.SetYOffset(top + itemHeight - m.ModelViewport.Height)
	}
	if top < m.ModelViewport.YOffset {
		m.ModelViewport.SetYOffset(top)
	}
}

func FormatUserMessage(content string, width int, isFirst bool) string {
	label := styles.UserLabelStyle.Render("YOU")
	msg := styles.UserMsgStyle.Width(width - 4).Render(content)
	if isFirst {
		return fmt.Sprintf("\n%s\n%s", label, msg)
	}
	return fmt.Sprintf("%s\n%s", label, msg)
}

func FormatAIMessage(label, content string) string {
	l := styles.AiLabelStyle.Render(label)
	msg := styles.AiMsgStyle.Render(content)
	return fmt.Sprintf("%s\n%s", l, msg)
}

func FormatSystemMessage(content string, width int) string {
	label := styles.SystemLabelStyle.Render("SYSTEM")
	msg := styles.ErrorStyle.Width(width - 4).Render(content)
	return fmt.Sprintf("%s\n%s", label, msg)
}

// FormatStreamingMessage shows the unfinished reply as plain text; markdown
// is rendered once the stream ends.
func FormatStreamingMessage(label, buffer, spinner string, width int) string {
	l := styles.AiLabelStyle.Render(label)
	status := spinner + " Generating..."
	if buffer == "" {
		return fmt.Sprintf("%s\n%s", l, status)
	}
	msg := styles.StreamingMsgStyle.Width(width - 4).Render(buffer)
	return fmt.Sprintf("%s\n%s\n%s", l, msg, status)
}
