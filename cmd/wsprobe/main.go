package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/park285/cheese-chess-live/internal/chess"
	"github.com/park285/cheese-chess-live/internal/protocol"
	"github.com/park285/cheese-chess-live/internal/wsclient"
)

func main() {
	wsURL := os.Getenv("CHESS_WS_URL")
	token := os.Getenv("CHESS_AUTH_TOKEN")
	gameID, _ := strconv.Atoi(os.Getenv("CHESS_GAME_ID"))
	move := os.Getenv("CHESS_MOVE") // optional, UCI like e2e4

	if wsURL == "" {
		wsURL = "ws://localhost:8080/ws"
	}
	if gameID <= 0 {
		log.Fatal("CHESS_GAME_ID is required")
	}

	header := http.Header{}
	if origin := os.Getenv("CHESS_ORIGIN"); origin != "" {
		header.Set("Origin", origin)
	}
	client := wsclient.New(wsURL, wsclient.WithReconnect(3), wsclient.WithHeader(header))
	client.OnStateChange(func(state wsclient.State) {
		log.Printf("WS state: %s", state)
	})
	client.OnMessage(func(msg protocol.ServerMessage) {
		switch msg.ServerMessageType {
		case protocol.MessageLoadGame:
			g := msg.Game
			fmt.Printf("LOAD_GAME id=%d white=%q black=%q fen=%s\n", g.GameID, g.WhiteUsername, g.BlackUsername, g.Game.FEN())
		case protocol.MessageNotification:
			fmt.Printf("NOTIFICATION %s\n", msg.Message)
		default:
			fmt.Printf("ERROR %s\n", msg.ErrorMessage)
		}
	})

	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := client.Connect(cctx); err != nil {
		log.Fatalf("WS connect error: %v", err)
	}
	hdr := protocol.Header{AuthToken: token, GameID: gameID}
	if err := client.Send(cctx, protocol.ConnectCommand{Header: hdr}); err != nil {
		log.Fatalf("send CONNECT: %v", err)
	}
	if move != "" {
		m, err := chess.ParseUCI(move)
		if err != nil {
			log.Fatalf("bad CHESS_MOVE: %v", err)
		}
		if err := client.Send(cctx, protocol.MakeMoveCommand{Header: hdr, Move: m}); err != nil {
			log.Fatalf("send MAKE_MOVE: %v", err)
		}
	}

	// Observe for a short window
	t := time.NewTimer(10 * time.Second)
	<-t.C

	_ = client.Close(context.Background())
}
