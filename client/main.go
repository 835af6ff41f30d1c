package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	flag "github.com/spf13/pflag"
	"github.com/wfunc/impostor/models"
	"github.com/wfunc/impostor/network"
	"github.com/wfunc/impostor/view"
)

const usage = `commands:
  create <room> <nickname>     join <room> <nickname>      leave
  word <word> [category]       config <impostors>          start
  open                         vote <playerId> [revote]    continue
  guess yes|no                 kick <playerId>             close
  quit`

type client struct {
	conn  *websocket.Conn
	mu    sync.Mutex
	token string
}

// send formats and sends a message to the WebSocket server.
func (c *client) send(msgID uint16, payload any) error {
	var data []byte
	if payload != nil {
		var err error
		if data, err = json.Marshal(payload); err != nil {
			return err
		}
	}
	packet, err := network.EncodePacket(msgID, data)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.BinaryMessage, packet)
}

func (c *client) sessionToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *client) readLoop(done chan<- struct{}) {
	defer close(done)
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			log.Println("Read error:", err)
			return
		}
		packet, err := network.DecodePacket(message)
		if err != nil {
			log.Printf("Received invalid packet of size %d", len(message))
			continue
		}
		c.print(packet)
	}
}

func (c *client) print(packet *network.Packet) {
	switch packet.MsgID {
	case network.MsgTypePong:
	case network.MsgTypeJoined:
		var joined network.JoinedMessage
		if json.Unmarshal(packet.Data, &joined) == nil {
			c.mu.Lock()
			c.token = joined.SessionToken
			c.mu.Unlock()
			log.Printf("joined %s as %s (reconnected=%v)", joined.RoomID, joined.PlayerID, joined.Reconnected)
		}
	case network.MsgTypeRoomSnapshot:
		var room view.PublicRoom
		if err := json.Unmarshal(packet.Data, &room); err != nil {
			log.Printf("bad snapshot: %v", err)
			return
		}
		printRoom(room)
	case network.MsgTypeError:
		var e network.ErrorMessage
		if json.Unmarshal(packet.Data, &e) == nil {
			log.Printf("error %d (msg %d): %s", e.Status, e.MsgID, e.Error)
		}
	default:
		log.Printf("<- RECV (ID: %d): %s", packet.MsgID, packet.Data)
	}
}

func printRoom(room view.PublicRoom) {
	fmt.Printf("\n== room %s [%s] words:%d impostors:%d\n", room.ID, room.Status, room.DictionaryCount, room.Config.ImpostorCount)
	for id, p := range room.Players {
		marks := ""
		if p.IsAdmin {
			marks += " admin"
		}
		if !p.Connected {
			marks += " away"
		}
		fmt.Printf("   %-10s %-12s %-8s %3d pts%s\n", id, p.Nickname, p.Status, p.Points, marks)
	}
	if r := room.Round; r != nil {
		fmt.Printf("   round %s phase=%s category=%q starter=%s\n", r.ID, r.Phase, r.Category, r.StarterID)
		if r.IsImpostor {
			fmt.Println("   you are the IMPOSTOR")
		} else if r.SecretWord != "" {
			fmt.Printf("   secret word: %s\n", r.SecretWord)
		}
		if r.Phase == models.PhaseVote || r.Phase == models.PhaseRevote {
			fmt.Printf("   votes %d/%d open=%v candidates=%v\n", r.TotalVotesReceived, r.TotalVotesNeeded, r.VotingOpen, r.RevoteCandidates)
		}
		if r.ImpostorGuessPending {
			fmt.Printf("   %s was an impostor and may guess the word\n", r.AccusedID)
		}
	}
	if n := len(room.History); n > 0 {
		last := room.History[n-1]
		fmt.Printf("   last round won by %s (word %q)\n", last.Winner, last.SecretWord)
	}
}

// command turns one input line into a packet; ok is false for unknown input.
func (c *client) command(fields []string) (msgID uint16, payload any, ok bool) {
	arg := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}
	switch fields[0] {
	case "create", "join":
		msgID = network.MsgTypeJoinRoom
		if fields[0] == "create" {
			msgID = network.MsgTypeCreateRoom
		}
		return msgID, network.CreateRoomRequest{RoomID: arg(1), Nickname: arg(2), SessionToken: c.sessionToken()}, true
	case "leave":
		return network.MsgTypeLeaveRoom, nil, true
	case "word":
		return network.MsgTypeAddWord, network.AddWordRequest{Word: arg(1), Category: strings.Join(fields[min(2, len(fields)):], " ")}, true
	case "config":
		n, err := strconv.Atoi(arg(1))
		if err != nil {
			return 0, nil, false
		}
		return network.MsgTypeConfig, network.ConfigRequest{ImpostorCount: n}, true
	case "start":
		return network.MsgTypeStartRound, nil, true
	case "open":
		return network.MsgTypeOpenVote, nil, true
	case "vote":
		req := network.VoteRequest{TargetID: arg(1)}
		if arg(2) == "revote" {
			revote := true
			req.IsRevote = &revote
		}
		return network.MsgTypeVote, req, true
	case "continue":
		return network.MsgTypeContinue, nil, true
	case "guess":
		return network.MsgTypeGuess, network.GuessRequest{Success: arg(1) == "yes"}, true
	case "kick":
		return network.MsgTypeKick, network.KickRequest{TargetID: arg(1)}, true
	case "close":
		return network.MsgTypeCloseRoom, nil, true
	}
	return 0, nil, false
}

func main() {
	host := flag.StringP("host", "H", "localhost:8080", "server address")
	heartbeat := flag.DurationP("heartbeat", "b", 10*time.Second, "heartbeat interval")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *host, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()
	c := &client{conn: conn}

	done := make(chan struct{})
	go c.readLoop(done)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	ticker := time.NewTicker(*heartbeat)
	defer ticker.Stop()

	fmt.Println(usage)
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := c.send(network.MsgTypeHeartbeat, nil); err != nil {
				log.Println("Write error:", err)
				return
			}
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		case line, open := <-lines:
			if !open {
				return
			}
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}
			if fields[0] == "quit" {
				return
			}
			msgID, payload, ok := c.command(fields)
			if !ok {
				fmt.Println(usage)
				continue
			}
			if err := c.send(msgID, payload); err != nil {
				log.Println("Write error:", err)
				return
			}
		}
	}
}
