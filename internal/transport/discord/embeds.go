package discord

import (
	"fmt"
	"strings"
	"time"

	"cs-quiz-bot/internal/domain"

	"github.com/bwmarrin/discordgo"
)

const (
	colorQuestion = 0x4c6ef5
	colorWinner   = 0x1cbb8c
	colorNeutral  = 0x5865f2

	fieldLimit       = 1024
	descriptionLimit = 4000
)

var optionLabels = map[string]string{
	"A": "Option A",
	"B": "Option B",
	"C": "Option C",
	"D": "Option D",
}

var difficultyIcons = map[string]string{
	"Easy":   "\U0001f7e2",
	"Medium": "\U0001f7e1",
	"Hard":   "\U0001f534",
}

func (b *Bot) questionEmbed(q domain.Question) *discordgo.MessageEmbed {
	prompt := q.Prompt
	if len(prompt) > descriptionLimit {
		prompt = prompt[:descriptionLimit-3] + "..."
	}

	embed := &discordgo.MessageEmbed{
		Title:       q.Topic,
		Description: "**Question**\n" + prompt,
		Color:       colorQuestion,
		Author:      &discordgo.MessageEmbedAuthor{Name: "Daily Computer Science Quiz"},
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	for _, key := range domain.OptionKeys {
		addChunkedField(embed, optionLabels[key], q.Options[key])
	}
	footer := fmt.Sprintf("%s Difficulty: %s", difficultyIcons[q.Difficulty], orUnknown(q.Difficulty))
	if q.Source != "" {
		footer += " | Generated by: " + q.Source
	}
	embed.Footer = &discordgo.MessageEmbedFooter{Text: footer}
	return embed
}

func (b *Bot) winnerEmbed(winner *discordgo.User, option string, round domain.Round) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "Correct Answer!",
		Description: fmt.Sprintf("%s chose **%s** and earned **+%d points**!",
			winner.Mention(), optionLabels[option], b.opts.Points),
		Color: colorWinner,
	}
	addChunkedField(embed, "Answer Text", round.Question.Options[option])
	if round.Question.Explanation != "" {
		addChunkedField(embed, "Explanation", round.Question.Explanation)
	}
	embed.Footer = &discordgo.MessageEmbedFooter{
		Text: fmt.Sprintf("Ready for the next challenge? Try %squestion!", b.opts.Prefix),
	}
	return embed
}

func (b *Bot) answerSheetEmbed(round domain.Round) *discordgo.MessageEmbed {
	q := round.Question
	embed := &discordgo.MessageEmbed{
		Title: "Answer Sheet - " + q.Topic,
		Color: colorWinner,
	}
	if round.State == domain.RoundOpen {
		// Keep the answer hidden while the round can still be won.
		embed.Description = "This question is still open - answer it first!"
		for _, key := range domain.OptionKeys {
			addChunkedField(embed, optionLabels[key], q.Options[key])
		}
		return embed
	}

	addChunkedField(embed, "Correct Answer", optionLabels[q.Correct]+"\n"+q.Options[q.Correct])
	if q.Explanation != "" {
		addChunkedField(embed, "Why?", q.Explanation)
	}
	embed.Fields = append(embed.Fields,
		&discordgo.MessageEmbedField{Name: "Difficulty", Value: orUnknown(q.Difficulty), Inline: true},
		&discordgo.MessageEmbedField{Name: "Generated By", Value: orUnknown(q.Source), Inline: true},
	)
	if round.Solved() {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Winner", Value: fmt.Sprintf("<@%s>", round.Winner),
		})
	}
	embed.Footer = &discordgo.MessageEmbedFooter{
		Text: "Question posted on " + round.OpenedAt.UTC().Format("Jan 02, 2006 15:04 UTC"),
	}
	return embed
}

func (b *Bot) leaderboardEmbed(lb domain.Leaderboard) *discordgo.MessageEmbed {
	var sb strings.Builder
	for i, entry := range lb.Entries {
		fmt.Fprintf(&sb, "**%d.** %s - %d pts (%d correct / %d wrong)\n",
			i+1, entry.Username, entry.Score, entry.Correct, entry.Wrong)
	}
	return &discordgo.MessageEmbed{
		Title:       "Global Leaderboard",
		Description: sb.String(),
		Color:       colorNeutral,
	}
}

func (b *Bot) statsEmbed(stats domain.UserStats) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "Quiz Stats - " + stats.Username,
		Color: colorNeutral,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Score", Value: fmt.Sprintf("%d", stats.Score), Inline: true},
			{Name: "Correct", Value: fmt.Sprintf("%d", stats.Correct), Inline: true},
			{Name: "Wrong", Value: fmt.Sprintf("%d", stats.Wrong), Inline: true},
			{Name: "Accuracy", Value: fmt.Sprintf("%.0f%%", stats.Accuracy()*100), Inline: true},
		},
	}
	if stats.LastAnswerAt != nil {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Last Answer", Value: stats.LastAnswerAt.UTC().Format("Jan 02, 2006 15:04 UTC"), Inline: true,
		})
	}
	return embed
}

func (b *Bot) recentEmbed(rounds []domain.Round) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "Recent Quiz Questions",
		Color: colorQuestion,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Use %squestion for a new quiz or %sans to see answers!", b.opts.Prefix, b.opts.Prefix),
		},
	}
	for i, round := range rounds {
		snippet := round.Question.Prompt
		if len(snippet) > 150 {
			snippet = strings.TrimSpace(snippet[:150]) + "..."
		}
		status := "open"
		if round.Solved() {
			status = fmt.Sprintf("solved by <@%s>", round.Winner)
		} else if round.State == domain.RoundClosed {
			status = "closed (" + round.CloseReason + ")"
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: fmt.Sprintf("%d. %s", i+1, round.Question.Topic),
			Value: fmt.Sprintf("**Question:** %s\n**Difficulty:** %s | **Status:** %s\n**Posted:** %s",
				snippet, orUnknown(round.Question.Difficulty), status,
				round.OpenedAt.UTC().Format("Jan 02, 2006 15:04 UTC")),
		})
	}
	return embed
}

func (b *Bot) helpEmbed() *discordgo.MessageEmbed {
	p := b.opts.Prefix
	return &discordgo.MessageEmbed{
		Title: "Daily CS Quiz Help",
		Color: colorNeutral,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name: "Questions",
				Value: fmt.Sprintf("`%squestion [topic]` or `%sq` - post a new quiz question\n"+
					"`%sans` - reveal the latest answer and explanation\n"+
					"Answer an open question with a single letter A-D", p, p, p),
			},
			{
				Name: "Stats & Leaderboards",
				Value: fmt.Sprintf("`%sleaderboard` - global scores with charts\n"+
					"`%sstats [@member]` - personal performance report\n"+
					"`%srecent` - last five questions", p, p, p),
			},
			{
				Name: "Admin",
				Value: fmt.Sprintf("`%ssetchannel`, `%ssetadmin @role`, `%sclose`, `%sresetscores`",
					p, p, p, p),
			},
		},
	}
}

// addChunkedField appends value as one or more fields, splitting on word
// boundaries to respect Discord's per-field length limit.
func addChunkedField(embed *discordgo.MessageEmbed, name, value string) {
	value = strings.ReplaceAll(value, `\n`, "\n")
	if value == "" {
		value = "-"
	}
	for i, chunk := range splitChunks(value, fieldLimit) {
		fieldName := name
		if i > 0 {
			fieldName = name + " (continued)"
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: fieldName, Value: chunk})
	}
}

func splitChunks(text string, max int) []string {
	if len(text) <= max {
		return []string{text}
	}
	var chunks []string
	words := strings.Fields(text)
	var current strings.Builder
	for _, word := range words {
		if current.Len()+len(word)+1 > max {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
		if len(word) > max {
			word = word[:max]
		}
		current.WriteString(word)
		current.WriteByte(' ')
	}
	if current.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}
	return chunks
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
