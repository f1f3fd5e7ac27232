// voiceclient is a terminal client for the docent server: it captures the
// default microphone with PortAudio, streams PCM frames over the websocket,
// plays narration audio back, and prints answer segments.
package main

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gordonklaus/portaudio"
	"github.com/gorilla/websocket"
)

const (
	sampleRate      = 16000
	channels        = 1
	framesPerBuffer = 1024
)

type controlMessage struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

type serverEnvelope struct {
	Type    string          `json:"type"`
	Seq     int             `json:"seq,omitempty"`
	Name    string          `json:"name,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type segmentPayload struct {
	Text     string `json:"text"`
	Image    string `json:"image,omitempty"`
	URL      string `json:"url,omitempty"`
	LinkText string `json:"linkText,omitempty"`
}

func main() {
	addr := flag.String("addr", "ws://localhost:8080/ws", "server websocket address")
	companion := flag.String("companion", "", "companion option: 연인, 가족, 친구, 혼자")
	flag.Parse()

	if err := portaudio.Initialize(); err != nil {
		log.Fatalf("portaudio init: %v", err)
	}
	defer func() { _ = portaudio.Terminate() }()

	conn, _, err := websocket.DefaultDialer.Dial(*addr, nil)
	if err != nil {
		log.Fatalf("dial %s: %v", *addr, err)
	}
	defer conn.Close()

	if *companion != "" {
		send(conn, controlMessage{Type: "init", Data: map[string]any{"onboardingOption": *companion}})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go readServer(ctx, conn)

	frames := make(chan []int16, 16)
	go func() {
		if err := captureMic(ctx, frames); err != nil {
			log.Printf("mic capture stopped: %v", err)
		}
	}()

	send(conn, controlMessage{Type: "start_recording"})
	log.Println("recording; speak, then pause to finish (Ctrl-C to quit)")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-sig:
			send(conn, controlMessage{Type: "stop_recording"})
			cancel()
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, packFrame(frame)); err != nil {
				log.Printf("ws write: %v", err)
				return
			}
		}
	}
}

func captureMic(ctx context.Context, out chan<- []int16) error {
	buffer := make([]int16, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(channels, 0, sampleRate, len(buffer), &buffer)
	if err != nil {
		return err
	}
	if err := stream.Start(); err != nil {
		return err
	}
	defer func() {
		_ = stream.Stop()
		_ = stream.Close()
		close(out)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := stream.Read(); err != nil {
			return err
		}
		frame := make([]int16, len(buffer))
		copy(frame, buffer)

		select {
		case out <- frame:
		case <-ctx.Done():
			return nil
		}
	}
}

// packFrame prefixes PCM samples with the server's 8-byte audio header:
// sampleRate(4) + channels(2) + reserved(2).
func packFrame(samples []int16) []byte {
	buf := make([]byte, 8+len(samples)*2)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(sampleRate))
	binary.LittleEndian.PutUint16(buf[4:6], uint16(channels))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[8+2*i:], uint16(s))
	}
	return buf
}

func readServer(ctx context.Context, conn *websocket.Conn) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("ws read: %v", err)
			}
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			if err := playPCM16(data); err != nil {
				log.Printf("playback: %v", err)
			}
		case websocket.TextMessage:
			printEnvelope(data)
		}
	}
}

func printEnvelope(data []byte) {
	var env serverEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		fmt.Printf("<< %s\n", data)
		return
	}

	switch env.Type {
	case "segment":
		var seg segmentPayload
		_ = json.Unmarshal(env.Payload, &seg)
		fmt.Printf("[%d] %s\n", env.Seq, seg.Text)
		if seg.URL != "" {
			fmt.Printf("    %s (%s)\n", seg.LinkText, seg.URL)
		}
	case "event":
		switch env.Name {
		case "thinking":
			var text string
			_ = json.Unmarshal(env.Payload, &text)
			fmt.Printf("... %s\n", text)
		case "session_ended":
			fmt.Println("-- conversation ended --")
		case "stt_notice", "notice":
			fmt.Printf("!! %s\n", env.Payload)
		}
	}
}

func playPCM16(data []byte) error {
	if len(data)%2 != 0 {
		data = data[:len(data)-1]
	}
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[2*i:]))
	}

	buffer := make([]int16, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(0, channels, sampleRate, len(buffer), &buffer)
	if err != nil {
		return err
	}
	if err := stream.Start(); err != nil {
		return err
	}
	defer func() {
		_ = stream.Stop()
		_ = stream.Close()
	}()

	offset := 0
	for offset < len(samples) {
		n := copy(buffer, samples[offset:])
		offset += n
		if err := stream.Write(); err != nil {
			return err
		}
	}
	return nil
}

func send(conn *websocket.Conn, msg controlMessage) {
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("ws send: %v", err)
	}
}
