package discord

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"cs-quiz-bot/internal/domain"

	"github.com/bwmarrin/discordgo"
)

func (b *Bot) dispatchCommand(ctx context.Context, m *discordgo.MessageCreate, input string) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return
	}
	command := strings.ToLower(fields[0])
	args := strings.TrimSpace(strings.TrimPrefix(input, fields[0]))

	switch command {
	case "question", "q":
		b.cmdQuestion(ctx, m, args)
	case "ans":
		b.cmdAnswer(m)
	case "leaderboard", "lb":
		b.cmdLeaderboard(ctx, m)
	case "stats":
		b.cmdStats(ctx, m)
	case "recent":
		b.cmdRecent(ctx, m)
	case "close":
		b.cmdClose(ctx, m)
	case "setchannel":
		b.cmdSetChannel(ctx, m)
	case "setadmin":
		b.cmdSetAdmin(ctx, m)
	case "resetscores":
		b.cmdResetScores(ctx, m)
	case "help":
		b.sendEmbed(m.ChannelID, b.helpEmbed())
	}
}

func (b *Bot) cmdQuestion(ctx context.Context, m *discordgo.MessageCreate, topic string) {
	allowed, err := b.state.AllowQuestion(ctx, m.ChannelID)
	if err != nil {
		log.Printf("cooldown check for %s: %v", m.ChannelID, err)
	}
	if !allowed {
		b.reply(m, "Slow down! Wait a few seconds before requesting another question.")
		return
	}

	if err := b.PublishQuestion(ctx, m.ChannelID, topic); err != nil {
		// Nothing was posted, so give the claimed window back.
		if relErr := b.state.ReleaseQuestion(ctx, m.ChannelID); relErr != nil {
			log.Printf("release cooldown for %s: %v", m.ChannelID, relErr)
		}
		if errors.Is(err, domain.ErrRoundConflict) {
			b.reply(m, fmt.Sprintf("There's already an open question here. Answer it first, or have an admin run `%sclose`.", b.opts.Prefix))
			return
		}
		log.Printf("publish question in %s: %v", m.ChannelID, err)
		b.reply(m, "Couldn't fetch a question right now. Try again in a moment.")
	}
}

func (b *Bot) cmdAnswer(m *discordgo.MessageCreate) {
	round, ok := b.rounds.LatestRound(m.ChannelID)
	if !ok {
		b.reply(m, "No question found for this channel yet.")
		return
	}
	b.sendEmbed(m.ChannelID, b.answerSheetEmbed(round))
}

func (b *Bot) cmdLeaderboard(ctx context.Context, m *discordgo.MessageCreate) {
	lb, err := b.rounds.Leaderboard(ctx, 10)
	if err != nil {
		log.Printf("leaderboard: %v", err)
		b.reply(m, "Leaderboard is unavailable right now.")
		return
	}
	if len(lb.Entries) == 0 {
		b.reply(m, "Nobody has scored yet. Be the first!")
		return
	}

	b.sendEmbed(m.ChannelID, b.leaderboardEmbed(lb))
	// Chart failures are non-fatal; the embed above already carries the data.
	if png, err := b.renderer.Leaderboard(lb); err == nil {
		b.sendFile(m.ChannelID, "leaderboard.png", png, "")
	} else {
		log.Printf("render leaderboard chart: %v", err)
	}
}

func (b *Bot) cmdStats(ctx context.Context, m *discordgo.MessageCreate) {
	subject := m.Author
	if len(m.Mentions) > 0 {
		subject = m.Mentions[0]
	}

	stats, err := b.store.UserStats(ctx, subject.ID)
	if errors.Is(err, domain.ErrUserNotFound) {
		b.reply(m, fmt.Sprintf("%s hasn't answered any questions yet.", subject.Username))
		return
	}
	if err != nil {
		log.Printf("user stats for %s: %v", subject.ID, err)
		b.reply(m, "Stats are unavailable right now.")
		return
	}

	b.sendEmbed(m.ChannelID, b.statsEmbed(stats))

	if png, err := b.renderer.Accuracy(stats); err == nil {
		b.sendFile(m.ChannelID, "accuracy.png", png, "")
	}
	if history, err := b.store.History(ctx, subject.ID); err == nil {
		if png, err := b.renderer.UserHistory(stats.Username, history, b.opts.Points); err == nil {
			b.sendFile(m.ChannelID, "history.png", png, "")
		}
	}
}

func (b *Bot) cmdRecent(ctx context.Context, m *discordgo.MessageCreate) {
	rounds, err := b.store.RecentRounds(ctx, 5)
	if err != nil {
		log.Printf("recent rounds: %v", err)
		b.reply(m, "Recent questions are unavailable right now.")
		return
	}
	if len(rounds) == 0 {
		b.reply(m, "No questions have been posted yet.")
		return
	}
	b.sendEmbed(m.ChannelID, b.recentEmbed(rounds))
}

func (b *Bot) cmdClose(ctx context.Context, m *discordgo.MessageCreate) {
	if !b.isAdmin(ctx, m) {
		b.reply(m, "Only quiz admins can close a round.")
		return
	}
	round, ok := b.rounds.CurrentRound(m.ChannelID)
	if !ok {
		b.reply(m, "No open question in this channel.")
		return
	}
	closed, err := b.rounds.CloseRound(ctx, round.ID, "admin")
	if err != nil {
		log.Printf("close round %s: %v", round.ID, err)
		return
	}
	if closed.Solved() {
		b.reply(m, fmt.Sprintf("That round was just solved by <@%s>.", closed.Winner))
		return
	}
	b.send(m.ChannelID, fmt.Sprintf("Round closed with no winner. The answer was **%s**.", closed.Question.Correct))
}

func (b *Bot) cmdSetChannel(ctx context.Context, m *discordgo.MessageCreate) {
	if !b.isAdmin(ctx, m) {
		b.reply(m, "Only quiz admins can set the daily channel.")
		return
	}
	cfg, err := b.store.GuildConfig(ctx, m.GuildID)
	if err != nil {
		log.Printf("guild config for %s: %v", m.GuildID, err)
		return
	}
	cfg.DailyChannelID = m.ChannelID
	if err := b.store.SetGuildConfig(ctx, cfg); err != nil {
		log.Printf("set guild config for %s: %v", m.GuildID, err)
		b.reply(m, "Couldn't save the setting. Try again.")
		return
	}
	b.reply(m, "Daily questions will now post in this channel.")
}

func (b *Bot) cmdSetAdmin(ctx context.Context, m *discordgo.MessageCreate) {
	if !b.isAdmin(ctx, m) {
		b.reply(m, "Only quiz admins can assign the admin role.")
		return
	}
	if len(m.MentionRoles) == 0 {
		b.reply(m, fmt.Sprintf("Mention the role to assign, e.g. `%ssetadmin @QuizMasters`.", b.opts.Prefix))
		return
	}
	cfg, err := b.store.GuildConfig(ctx, m.GuildID)
	if err != nil {
		log.Printf("guild config for %s: %v", m.GuildID, err)
		return
	}
	cfg.AdminRoleID = m.MentionRoles[0]
	if err := b.store.SetGuildConfig(ctx, cfg); err != nil {
		log.Printf("set guild config for %s: %v", m.GuildID, err)
		b.reply(m, "Couldn't save the setting. Try again.")
		return
	}
	b.reply(m, fmt.Sprintf("<@&%s> can now manage the quiz bot.", cfg.AdminRoleID))
}

func (b *Bot) cmdResetScores(ctx context.Context, m *discordgo.MessageCreate) {
	if !b.isAdmin(ctx, m) {
		b.reply(m, "Only quiz admins can reset scores.")
		return
	}
	if err := b.store.ResetScores(ctx); err != nil {
		log.Printf("reset scores: %v", err)
		b.reply(m, "Couldn't reset scores. Try again.")
		return
	}
	b.send(m.ChannelID, "All scores have been reset.")
}
