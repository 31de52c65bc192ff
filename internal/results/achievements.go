package results

import "pongarena/server/internal/game"

// achievementInput is one player's view when a predicate is evaluated: the
// merged post-match stats plus both final scores.
type achievementInput struct {
	stats         *game.PlayerStats
	score         int
	opponentScore int
}

// Achievement is one entry of the static catalog. Unlocked is evaluated once
// per finished match per player; only the first satisfied evaluation persists.
type Achievement struct {
	ID          string
	Name        string
	Description string
	Icon        string
	Unlocked    func(in achievementInput) bool
}

// Catalog lists every achievement in evaluation order.
var Catalog = []Achievement{
	{
		ID:          "sharpshooter",
		Name:        "Sharpshooter",
		Description: "Win a game without missing a single shot",
		Icon:        "/assets/achievements/sharpshooter.webp",
		Unlocked: func(in achievementInput) bool {
			return in.stats.WonCurrentGame && in.stats.PaddleMisses == 0
		},
	},
	{
		ID:          "lightning-reflexes",
		Name:        "Lightning Reflexes",
		Description: "Win a game under 1 minute",
		Icon:        "/assets/achievements/lightning-reflexes.webp",
		Unlocked: func(in achievementInput) bool {
			return in.stats.WonCurrentGame && in.stats.GameDurationSeconds < 60
		},
	},
	{
		ID:          "comeback-kid",
		Name:        "Comeback Kid",
		Description: "Win a game after being down by at least 3 points",
		Icon:        "/assets/achievements/comeback-kid.webp",
		Unlocked: func(in achievementInput) bool {
			return in.stats.WonCurrentGame && in.stats.LargestScoreDifference <= -3
		},
	},
	{
		ID:          "wall-bouncer",
		Name:        "Wall Bouncer",
		Description: "Bounce the ball off the wall 5 times in a row",
		Icon:        "/assets/achievements/wall-bouncer.webp",
		Unlocked: func(in achievementInput) bool {
			return in.stats.LargestWallBounceStreak >= 5
		},
	},
	{
		ID:          "paddle-master",
		Name:        "Paddle Master",
		Description: "Hit the paddle 10 times in a row",
		Icon:        "/assets/achievements/paddle-master.webp",
		Unlocked: func(in achievementInput) bool {
			return in.stats.LargestPaddleHitStreak >= 10
		},
	},
	{
		ID:          "stalemate-breaker",
		Name:        "Stalemate Breaker",
		Description: "Win a game after reaching a 4-4 tie",
		Icon:        "/assets/achievements/stalemate-breaker.webp",
		Unlocked: func(in achievementInput) bool {
			return in.stats.WonCurrentGame && in.opponentScore == 4
		},
	},
	{
		ID:          "hat-trick",
		Name:        "Hat Trick",
		Description: "Win 3 games in a row",
		Icon:        "/assets/achievements/hat-trick.webp",
		Unlocked: func(in achievementInput) bool {
			return in.stats.WonCurrentGame && in.stats.WinStreak == 3
		},
	},
	{
		ID:          "first-win",
		Name:        "First Win",
		Description: "Win your first game",
		Icon:        "/assets/achievements/first-win.webp",
		Unlocked: func(in achievementInput) bool {
			return in.stats.WonCurrentGame && in.stats.GamesWon == 1
		},
	},
	{
		ID:          "top-paddle-hits",
		Name:        "Top Gun",
		Description: "Win a game hitting the ball with the top of the paddle only",
		Icon:        "/assets/achievements/top-paddle-hits.webp",
		Unlocked: func(in achievementInput) bool {
			return in.stats.WonCurrentGame && in.stats.TopPaddleHits == in.stats.PaddleHits
		},
	},
	{
		ID:          "bottom-paddle-hits",
		Name:        "Low Sweep Master",
		Description: "Win a game hitting the ball with the bottom of the paddle only",
		Icon:        "/assets/achievements/bottom-paddle-hits.webp",
		Unlocked: func(in achievementInput) bool {
			return in.stats.WonCurrentGame && in.stats.BottomPaddleHits == in.stats.PaddleHits
		},
	},
	{
		ID:          "wall-hugger",
		Name:        "Wall Hugger",
		Description: "Win a game without hitting the wall once",
		Icon:        "/assets/achievements/wall-hugger.webp",
		Unlocked: func(in achievementInput) bool {
			return in.stats.WonCurrentGame && in.stats.WallBounces == 0
		},
	},
	{
		ID:          "double-bounce",
		Name:        "Double Bounce",
		Description: "Make the ball bounce 2 times in a row",
		Icon:        "/assets/achievements/double-bounce.webp",
		Unlocked: func(in achievementInput) bool {
			return in.stats.LargestWallBounceStreak >= 2
		},
	},
	{
		ID:          "point-pioneer",
		Name:        "Point Pioneer",
		Description: "Score your first point",
		Icon:        "/assets/achievements/point-pioneer.webp",
		Unlocked: func(in achievementInput) bool {
			return in.stats.TotalPointsScored >= 1
		},
	},
	{
		ID:          "first-game",
		Name:        "First Game",
		Description: "Play your first game",
		Icon:        "/assets/achievements/first-game.webp",
		Unlocked: func(in achievementInput) bool {
			return in.stats.GamesPlayed == 1
		},
	},
	{
		ID:          "quintuple-triumph",
		Name:        "Quintuple Triumph",
		Description: "Win 5 games",
		Icon:        "/assets/achievements/quintuple-triumph.webp",
		Unlocked: func(in achievementInput) bool {
			return in.stats.WonCurrentGame && in.stats.GamesWon == 5
		},
	},
	{
		ID:          "rage-quit",
		Name:        "Rage Quit",
		Description: "Win by making your opponent rage quit before the game ends",
		Icon:        "/assets/achievements/rage-quit.webp",
		Unlocked: func(in achievementInput) bool {
			return in.stats.WonCurrentGame && in.score < game.ScoreLimit
		},
	},
	{
		ID:          "away-from-keyboard",
		Name:        "Away From Keyboard",
		Description: "Win a game without hitting the ball once",
		Icon:        "/assets/achievements/away-from-keyboard.webp",
		Unlocked: func(in achievementInput) bool {
			return in.stats.WonCurrentGame && in.stats.PaddleHits == 0
		},
	},
	{
		ID:          "five-star-finisher",
		Name:        "Five Star Finisher",
		Description: "Score 5 points in a row and win the game",
		Icon:        "/assets/achievements/five-star-finisher.webp",
		Unlocked: func(in achievementInput) bool {
			return in.stats.WonCurrentGame && in.stats.LargestScoreStreak >= game.ScoreLimit
		},
	},
}
