package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/llm-unify/internal"
	"github.com/iksnae/llm-unify/internal/export"
	"github.com/iksnae/llm-unify/internal/storage"
	"github.com/spf13/cobra"
)

var (
	showLimit  int
	showRender bool
)

var (
	// Styles for show command
	conversationHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212")).
				Padding(0, 1).
				MarginBottom(1)

	conversationMetaStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243")).
				MarginBottom(1)

	userMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 1)

	assistantMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("135")).
				Bold(true).
				Padding(0, 1)

	messageContentStyle = lipgloss.NewStyle().
				Padding(0, 2).
				MarginBottom(1)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the messages of a conversation",
	Long: `Display every message of a stored conversation.

--render formats message content as Markdown in the terminal.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		return withRepository(cmd, func(ctx context.Context, _ *storage.Database, repo *storage.ConversationRepository) error {
			conv, err := repo.FindByID(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to load conversation: %w", err)
			}
			if conv == nil {
				return fmt.Errorf("conversation not found: %s", id)
			}

			out := cmd.OutOrStdout()
			if showRender {
				return renderConversation(out, conv)
			}

			displayConversationHeader(out, conv)
			messages := conv.Messages
			total := len(messages)
			if showLimit > 0 && showLimit < total {
				messages = messages[:showLimit]
			}
			for i, msg := range messages {
				displayMessage(out, i+1, msg, total)
			}
			if showLimit > 0 && showLimit < total {
				fmt.Fprintln(out, timestampStyle.Render(fmt.Sprintf("... (%d more message(s))", total-showLimit)))
			}
			return nil
		})
	},
}

func displayConversationHeader(out io.Writer, conv *internal.Conversation) {
	fmt.Fprintln(out, conversationHeaderStyle.Render(fmt.Sprintf("💬 %s", conv.DisplayTitle())))

	metaParts := []string{
		fmt.Sprintf("Provider: %s", conv.Provider.DisplayName()),
		fmt.Sprintf("Created: %s", conv.CreatedAt.Format(time.RFC3339)),
		fmt.Sprintf("Messages: %d", conv.MessageCount()),
	}
	fmt.Fprintln(out, conversationMetaStyle.Render(strings.Join(metaParts, " • ")))
	fmt.Fprintln(out)
}

func displayMessage(out io.Writer, index int, msg internal.Message, total int) {
	var actorStyle lipgloss.Style
	var actorLabel string

	switch msg.Role {
	case internal.RoleUser:
		actorStyle = userMessageStyle
		actorLabel = "👤 User"
	case internal.RoleAssistant:
		actorStyle = assistantMessageStyle
		actorLabel = "🤖 Assistant"
	default:
		actorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
		actorLabel = fmt.Sprintf("🔧 %s", msg.Role)
	}

	header := actorStyle.Render(actorLabel) + " " + timestampStyle.Render(fmt.Sprintf("[%d/%d]", index, total))
	if msg.Timestamp != nil {
		header += " " + timestampStyle.Render(msg.Timestamp.Format("15:04:05"))
	}
	fmt.Fprintln(out, header)

	content := strings.TrimSpace(msg.Content)
	if content == "" {
		fmt.Fprintln(out, messageContentStyle.Foreground(lipgloss.Color("240")).Render("(empty message)"))
	} else {
		fmt.Fprintln(out, messageContentStyle.Render(wrapText(content, 80)))
	}
	fmt.Fprintln(out)
}

// renderConversation writes the Markdown export through glamour
func renderConversation(out io.Writer, conv *internal.Conversation) error {
	var md bytes.Buffer
	if err := (&export.MarkdownExporter{}).Export(conv, &md); err != nil {
		return err
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	rendered, err := renderer.Render(md.String())
	if err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}
	_, err = io.WriteString(out, rendered)
	return err
}

func wrapText(text string, width int) string {
	lines := strings.Split(text, "\n")
	var wrapped []string

	for _, line := range lines {
		if len(line) <= width {
			wrapped = append(wrapped, line)
			continue
		}

		words := strings.Fields(line)
		currentLine := ""
		for _, word := range words {
			if len(currentLine)+len(word)+1 > width {
				if currentLine != "" {
					wrapped = append(wrapped, currentLine)
					currentLine = word
				} else {
					wrapped = append(wrapped, word)
					currentLine = ""
				}
			} else {
				if currentLine == "" {
					currentLine = word
				} else {
					currentLine += " " + word
				}
			}
		}
		if currentLine != "" {
			wrapped = append(wrapped, currentLine)
		}
	}

	return strings.Join(wrapped, "\n")
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().IntVarP(&showLimit, "limit", "n", 0, "Limit number of messages to show")
	showCmd.Flags().BoolVar(&showRender, "render", false, "Render message content as Markdown")
}
