// Command gamectl administers games and tokens in the Redis store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/park285/cheese-chess-live/internal/auth"
	"github.com/park285/cheese-chess-live/internal/chess"
	appcfg "github.com/park285/cheese-chess-live/internal/config"
	"github.com/park285/cheese-chess-live/internal/store"
)

const usage = `usage: gamectl <command> [flags]

commands:
  create-game -name NAME
  join        -game ID -color white|black -user NAME
  list        [-limit N]
  issue-token -user NAME [-ttl 24h]
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := run(ctx, cfg, os.Args[1], os.Args[2:]); err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

func run(ctx context.Context, cfg *appcfg.AppConfig, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	switch cmd {
	case "create-game":
		name := fs.String("name", "", "game name")
		_ = fs.Parse(args)
		games, closeFn, err := openGames(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeFn()
		g, err := games.CreateGame(ctx, strings.TrimSpace(*name))
		if err != nil {
			return err
		}
		fmt.Printf("created game %d %q\n", g.GameID, g.GameName)
	case "join":
		id := fs.Int("game", 0, "game id")
		color := fs.String("color", "white", "white or black")
		user := fs.String("user", "", "username")
		_ = fs.Parse(args)
		c, err := parseColor(*color)
		if err != nil {
			return err
		}
		games, closeFn, err := openGames(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeFn()
		g, err := games.JoinSeat(ctx, *id, c, *user)
		if err != nil {
			return err
		}
		fmt.Printf("game %d: white=%q black=%q\n", g.GameID, g.WhiteUsername, g.BlackUsername)
	case "list":
		limit := fs.Int("limit", 20, "max games")
		_ = fs.Parse(args)
		games, closeFn, err := openGames(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeFn()
		list, err := games.ListGames(ctx, *limit)
		if err != nil {
			return err
		}
		for _, g := range list {
			state := "playing"
			if g.Game.Over {
				state = "over"
			}
			fmt.Printf("%-6s %-20q white=%-12q black=%-12q %s %s\n",
				strconv.Itoa(g.GameID), g.GameName, g.WhiteUsername, g.BlackUsername, state, g.Game.FEN())
		}
	case "issue-token":
		user := fs.String("user", "", "username")
		ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
		_ = fs.Parse(args)
		if strings.TrimSpace(*user) == "" {
			return fmt.Errorf("-user is required")
		}
		tok, err := issueToken(ctx, cfg, *user, *ttl)
		if err != nil {
			return err
		}
		fmt.Println(tok)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command")
	}
	return nil
}

func openGames(ctx context.Context, cfg *appcfg.AppConfig) (*store.RedisGameStore, func(), error) {
	rdb, err := store.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return store.NewRedisGameStore(rdb), func() { _ = rdb.Close() }, nil
}

// issueToken mints a token the server's configured auth mode accepts.
func issueToken(ctx context.Context, cfg *appcfg.AppConfig, user string, ttl time.Duration) (string, error) {
	switch cfg.AuthMode {
	case appcfg.AuthJWT:
		v, err := auth.NewJWTVerifier(cfg.AuthJWTSecret, "")
		if err != nil {
			return "", err
		}
		return v.Issue(user, ttl)
	case appcfg.AuthRemote:
		return "", fmt.Errorf("tokens are issued by %s in remote mode", cfg.AuthRemoteURL)
	}
	rdb, err := store.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return "", err
	}
	defer func() { _ = rdb.Close() }()
	return store.NewRedisAuthStore(rdb).IssueToken(ctx, user, ttl)
}

func parseColor(s string) (chess.Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return chess.White, nil
	case "black", "b":
		return chess.Black, nil
	}
	return chess.White, fmt.Errorf("bad color %q", s)
}
