package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/testpilot-ai/testpilot/internal/engine"
)

// Discord posts run summaries to a single channel.
type Discord struct {
	session   *discordgo.Session
	channelID string
}

func NewDiscord(token, channelID string) (*Discord, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	return &Discord{session: session, channelID: channelID}, nil
}

func (d *Discord) Notify(_ context.Context, result *engine.TestResult) error {
	if _, err := d.session.ChannelMessageSend(d.channelID, Summary(result)); err != nil {
		return fmt.Errorf("discord send: %w", err)
	}
	return nil
}
