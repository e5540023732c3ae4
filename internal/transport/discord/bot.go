package discord

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"cs-quiz-bot/internal/app"
	"cs-quiz-bot/internal/charts"
	"cs-quiz-bot/internal/domain"
	"cs-quiz-bot/internal/question"

	"github.com/bwmarrin/discordgo"
)

// Store is the persistence surface the bot reads stats and config from.
type Store interface {
	UserStats(ctx context.Context, userID string) (domain.UserStats, error)
	History(ctx context.Context, userID string) ([]domain.Attempt, error)
	RecentRounds(ctx context.Context, limit int) ([]domain.Round, error)
	GuildConfig(ctx context.Context, guildID string) (domain.GuildConfig, error)
	SetGuildConfig(ctx context.Context, cfg domain.GuildConfig) error
	ResetScores(ctx context.Context) error
}

// ChannelState gates how often new questions may be posted per channel.
// ReleaseQuestion undoes a claimed window when no question was posted.
type ChannelState interface {
	AllowQuestion(ctx context.Context, channelID string) (bool, error)
	ReleaseQuestion(ctx context.Context, channelID string) error
}

// Options tunes bot behavior.
type Options struct {
	Prefix       string
	Points       int
	RoundTimeout time.Duration
}

// Bot is the Discord chat surface. It translates messages into round
// operations; all ordering guarantees live in the round service, so the
// handlers here stay straight-line request/response code.
type Bot struct {
	session  *discordgo.Session
	rounds   *app.RoundService
	supplier *question.Supplier
	store    Store
	state    ChannelState
	renderer *charts.Renderer
	opts     Options
}

func New(token string, rounds *app.RoundService, supplier *question.Supplier, store Store, state ChannelState, renderer *charts.Renderer, opts Options) (*Bot, error) {
	if opts.Prefix == "" {
		opts.Prefix = "!"
	}
	if opts.Points <= 0 {
		opts.Points = 10
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}

	b := &Bot{
		session:  session,
		rounds:   rounds,
		supplier: supplier,
		store:    store,
		state:    state,
		renderer: renderer,
		opts:     opts,
	}
	session.AddHandler(b.onMessageCreate)
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent
	return b, nil
}

// Open connects to the gateway.
func (b *Bot) Open() error {
	return b.session.Open()
}

// Close disconnects from the gateway.
func (b *Bot) Close() error {
	return b.session.Close()
}

// Session exposes the underlying connection for the scheduler's guild walk.
func (b *Bot) Session() *discordgo.Session {
	return b.session
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}
	ctx := context.Background()

	if strings.HasPrefix(m.Content, b.opts.Prefix) {
		b.dispatchCommand(ctx, m, strings.TrimPrefix(m.Content, b.opts.Prefix))
		return
	}
	b.maybeAnswer(ctx, m)
}

// maybeAnswer treats a short message as an answer submission when a round
// is open in the channel and the token maps onto the A-D grammar.
func (b *Bot) maybeAnswer(ctx context.Context, m *discordgo.MessageCreate) {
	option := domain.NormalizeOption(m.Content)
	if !domain.ValidOption(option) {
		return
	}
	round, ok := b.rounds.CurrentRound(m.ChannelID)
	if !ok {
		return
	}

	result, err := b.rounds.SubmitAnswer(ctx, round.ID, m.Author.ID, m.Author.Username, option)
	if err != nil {
		// Pre-validated grammar makes this unreachable in practice.
		log.Printf("submit answer: %v", err)
		return
	}

	switch result.Outcome {
	case domain.AcceptedCorrect:
		b.sendEmbed(m.ChannelID, b.winnerEmbed(m.Author, option, result.Round))
	case domain.RejectedIncorrect:
		b.reply(m, fmt.Sprintf("**%s** is not it, %s. Better luck next round!", option, m.Author.Mention()))
	case domain.RejectedDuplicateUser:
		b.reply(m, fmt.Sprintf("You've already taken your shot at this one, %s. Wait for the next question!", m.Author.Mention()))
	case domain.RejectedRoundClosed:
		msg := "Too late - this question is already closed."
		if result.Round.Solved() {
			msg = fmt.Sprintf("Too late - <@%s> already solved this one.", result.Round.Winner)
		}
		b.reply(m, msg)
	}
}

// PublishQuestion fetches the next question and opens a round in channelID.
// Used by both the manual command and the daily scheduler.
func (b *Bot) PublishQuestion(ctx context.Context, channelID, topic string) error {
	q, err := b.supplier.Fetch(ctx, channelID, topic)
	if err != nil {
		return err
	}
	round, err := b.rounds.OpenRound(ctx, channelID, q)
	if err != nil {
		return err
	}

	if _, err := b.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: fmt.Sprintf("**Daily CS Quiz** - first correct reply wins %d pts! Answer with a single letter A-D.", b.opts.Points),
		Embed:   b.questionEmbed(round.Question),
	}); err != nil {
		return fmt.Errorf("send question: %w", err)
	}

	if b.opts.RoundTimeout > 0 {
		b.watchTimeout(round.ID, channelID)
	}
	return nil
}

// watchTimeout closes the round if nobody answers in time. CloseRound is
// idempotent and safe to race against a winning submission.
func (b *Bot) watchTimeout(roundID, channelID string) {
	time.AfterFunc(b.opts.RoundTimeout, func() {
		round, err := b.rounds.CloseRound(context.Background(), roundID, "timeout")
		if err != nil || round.Solved() || round.CloseReason != "timeout" {
			return
		}
		if _, err := b.session.ChannelMessageSend(channelID,
			fmt.Sprintf("Time's up! Nobody got it. The answer was **%s**. Use `%squestion` for a fresh one.",
				round.Question.Correct, b.opts.Prefix)); err != nil {
			log.Printf("announce timeout: %v", err)
		}
	})
}

// DailyDispatch posts a question to every guild's configured (or first
// writable) channel. It is purely an external caller of PublishQuestion.
func (b *Bot) DailyDispatch(ctx context.Context) {
	for _, guild := range b.session.State.Guilds {
		channelID := b.dailyChannel(ctx, guild)
		if channelID == "" {
			log.Printf("no suitable channel found for guild %s", guild.ID)
			continue
		}
		if err := b.PublishQuestion(ctx, channelID, ""); err != nil {
			if errors.Is(err, domain.ErrRoundConflict) {
				log.Printf("guild %s still has an open round, skipping daily question", guild.ID)
				continue
			}
			log.Printf("daily question for guild %s: %v", guild.ID, err)
		}
	}
}

func (b *Bot) dailyChannel(ctx context.Context, guild *discordgo.Guild) string {
	cfg, err := b.store.GuildConfig(ctx, guild.ID)
	if err == nil && cfg.DailyChannelID != "" {
		return cfg.DailyChannelID
	}
	for _, ch := range guild.Channels {
		if ch.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		perms, err := b.session.UserChannelPermissions(b.session.State.User.ID, ch.ID)
		if err == nil && perms&discordgo.PermissionSendMessages != 0 {
			return ch.ID
		}
	}
	return ""
}

func (b *Bot) isAdmin(ctx context.Context, m *discordgo.MessageCreate) bool {
	cfg, err := b.store.GuildConfig(ctx, m.GuildID)
	if err == nil && cfg.AdminRoleID != "" && m.Member != nil {
		for _, role := range m.Member.Roles {
			if role == cfg.AdminRoleID {
				return true
			}
		}
	}
	perms, err := b.session.UserChannelPermissions(m.Author.ID, m.ChannelID)
	if err != nil {
		return false
	}
	return perms&discordgo.PermissionManageServer != 0 || perms&discordgo.PermissionAdministrator != 0
}

func (b *Bot) reply(m *discordgo.MessageCreate, content string) {
	if _, err := b.session.ChannelMessageSendReply(m.ChannelID, content, m.Reference()); err != nil {
		log.Printf("reply in %s: %v", m.ChannelID, err)
	}
}

func (b *Bot) send(channelID, content string) {
	if _, err := b.session.ChannelMessageSend(channelID, content); err != nil {
		log.Printf("send to %s: %v", channelID, err)
	}
}

func (b *Bot) sendEmbed(channelID string, embed *discordgo.MessageEmbed) {
	if _, err := b.session.ChannelMessageSendEmbed(channelID, embed); err != nil {
		log.Printf("send embed to %s: %v", channelID, err)
	}
}

func (b *Bot) sendFile(channelID, name string, data []byte, content string) {
	_, err := b.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: content,
		Files:   []*discordgo.File{{Name: name, ContentType: "image/png", Reader: bytes.NewReader(data)}},
	})
	if err != nil {
		log.Printf("send file to %s: %v", channelID, err)
	}
}
