package main

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Message ids mirrored from the server protocol.
const (
	MsgTypeCreateRoom  = 101
	MsgTypeJoinRoom    = 102
	MsgTypeLeaveRoom   = 103
	MsgTypeUpdateQuota = 104
	MsgTypeStartGame   = 105
	MsgTypeNightAction = 201
	MsgTypeStartVoting = 202
	MsgTypeCastVote    = 203
	MsgTypeChat        = 204
)

// send formats and sends a message to the WebSocket server.
func send(c *websocket.Conn, msgID uint16, data []byte) error {
	packet := make([]byte, 4+len(data))
	binary.BigEndian.PutUint16(packet[0:2], msgID)
	binary.BigEndian.PutUint16(packet[2:4], uint16(len(data)))
	copy(packet[4:], data)

	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func main() {
	addr := flag.String("addr", "localhost:8080", "server address")
	name := flag.String("name", "Tester", "player name")
	join := flag.String("join", "", "room code to join instead of creating")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			if len(message) < 4 {
				log.Printf("Received invalid packet of size %d", len(message))
				continue
			}
			msgID := binary.BigEndian.Uint16(message[0:2])
			data := message[4:]
			log.Printf("<- RECV (ID: %d): %s", msgID, string(data))
		}
	}()

	if *join != "" {
		log.Printf("Joining room %s as %s...", *join, *name)
		payload, _ := json.Marshal(map[string]string{"room_code": *join, "player_name": *name})
		if err := send(c, MsgTypeJoinRoom, payload); err != nil {
			log.Println("Write error:", err)
			return
		}
	} else {
		log.Printf("Creating room as %s...", *name)
		payload, _ := json.Marshal(map[string]string{"player_name": *name})
		if err := send(c, MsgTypeCreateRoom, payload); err != nil {
			log.Println("Write error:", err)
			return
		}
	}

	log.Println("Commands: quota <k> <s> <g> | start | vote-open | kill <handle> | see <handle> | guard <handle> | vote <handle> | say <text> | leave")

	// Write loop
	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		default:
			text, _ := reader.ReadString('\n')
			fields := strings.Fields(strings.TrimSpace(text))
			if len(fields) == 0 {
				continue
			}

			var msgID uint16
			var payload []byte
			switch fields[0] {
			case "start":
				msgID = MsgTypeStartGame
			case "leave":
				msgID = MsgTypeLeaveRoom
			case "quota":
				if len(fields) < 4 {
					log.Println("Usage: quota <killers> <seers> <guardians>")
					continue
				}
				k, err1 := strconv.Atoi(fields[1])
				s, err2 := strconv.Atoi(fields[2])
				g, err3 := strconv.Atoi(fields[3])
				if err1 != nil || err2 != nil || err3 != nil {
					log.Println("Usage: quota <killers> <seers> <guardians>")
					continue
				}
				msgID = MsgTypeUpdateQuota
				payload, _ = json.Marshal(map[string]map[string]int{"quota": {
					"killers": k, "seers": s, "guardians": g,
				}})
			case "vote-open":
				msgID = MsgTypeStartVoting
			case "kill", "see", "guard":
				if len(fields) < 2 {
					log.Println("Usage:", fields[0], "<handle>")
					continue
				}
				msgID = MsgTypeNightAction
				payload, _ = json.Marshal(map[string]string{"target": fields[1]})
			case "vote":
				if len(fields) < 2 {
					log.Println("Usage: vote <handle>")
					continue
				}
				msgID = MsgTypeCastVote
				payload, _ = json.Marshal(map[string]string{"target": fields[1]})
			case "say":
				msgID = MsgTypeChat
				payload, _ = json.Marshal(map[string]string{"message": strings.Join(fields[1:], " ")})
			default:
				log.Println("Unknown command:", fields[0])
				continue
			}

			if err := send(c, msgID, payload); err != nil {
				log.Println("Write error:", err)
				return
			}
			log.Printf("-> SENT: %s", fields[0])
		}
	}
}
