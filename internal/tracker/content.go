package tracker

import (
	"context"
	"fmt"

	"github.com/k17ctf/ctfbot/internal/ctfd"
	"github.com/k17ctf/ctfbot/internal/domain"
	"github.com/k17ctf/ctfbot/internal/logger"
)

// CounterContent is the live text of a counter message.
func CounterContent(n uint64) string {
	return fmt.Sprintf("Counting: %d", n)
}

func pendingContent(md *domain.CTFdMetadata) string {
	return fmt.Sprintf("⏳ Loading leaderboard for %s…", md.Domain)
}

// renderCTFd fetches the scoreboard and, when a forum is configured, the
// open threads used for the in-progress section.
func (e *Engine) renderCTFd(ctx context.Context, md *domain.CTFdMetadata) (string, error) {
	snap, err := e.scoreboard.Fetch(ctx, md.Domain, md.APIKey)
	if err != nil {
		return "", err
	}

	var threads []string
	if !md.ForumChannelID.IsZero() {
		list, err := e.platform.ActiveForumThreads(ctx, md.ForumChannelID)
		if err != nil {
			e.logger.Warn("failed to list forum threads",
				logger.Stringer("forum_channel_id", md.ForumChannelID),
				logger.Error(err))
		}
		for _, th := range list {
			threads = append(threads, th.Name)
		}
	}

	return ctfd.Render(snap, ctfd.RenderOptions{
		Domain:     md.Domain,
		Size:       e.opts.LeaderboardSize,
		InProgress: threads,
		Now:        e.now(),
	}), nil
}
