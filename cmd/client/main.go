package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/jeffaf/voxx/client"
	"github.com/jeffaf/voxx/protocol"

	"go.uber.org/zap"
)

func main() {
	serverURL := flag.String("server", "ws://localhost:8080/ws/voice", "voice session endpoint")
	audioPath := flag.String("audio", "", "path to an audio file (wav, mp3 or m4a)")
	flag.Parse()

	if *audioPath == "" {
		log.Fatal("usage: client -audio command.wav [-server ws://host:8080/ws/voice]")
	}

	audio, err := os.ReadFile(*audioPath)
	if err != nil {
		log.Fatalf("failed to read audio file: %v", err)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	controller := client.New(client.Config{URL: *serverURL}, logger)

	result, err := controller.Execute(context.Background(), audio, printEvent)
	if err != nil {
		var serverErr *client.ServerError
		switch {
		case errors.As(err, &serverErr):
			log.Fatalf("command failed: %v", serverErr)
		case errors.Is(err, client.ErrConnectionFailed):
			log.Fatalf("could not reach server: %v", err)
		default:
			log.Fatalf("exchange failed: %v", err)
		}
	}

	fmt.Println()
	fmt.Printf("command:    %s\n", result.Transcript)
	fmt.Printf("agents:     %d\n", result.AgentCount)
	fmt.Printf("success:    %t\n", result.Success)
	fmt.Printf("elapsed:    %.2fs\n", result.ExecutionTime)
}

func printEvent(event protocol.Event) {
	switch ev := event.(type) {
	case *protocol.ConnectedEvent:
		fmt.Printf("• %s\n", ev.Message)
	case *protocol.StatusEvent:
		fmt.Printf("• %s\n", ev.Message)
	case *protocol.TranscriptionEvent:
		fmt.Printf("» heard: %q\n", ev.Text)
	case *protocol.ComplexityEvent:
		fmt.Printf("» dispatching %d agents\n", ev.Level)
	case *protocol.ResponseChunkEvent:
		fmt.Println(ev.Text)
	case *protocol.CompleteEvent, *protocol.ErrorEvent:
		// Summarized by the caller.
	}
}
