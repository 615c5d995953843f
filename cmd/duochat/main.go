package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"duochat/domain"
	"duochat/internal"
	"duochat/livesync"
	"duochat/moderation"
	"duochat/projection"
	"duochat/repositories"
	"duochat/runtime"
	"duochat/runtime/workers"
	"duochat/services"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the whole stack and drives an interactive two-party session.
// The error-returning pattern keeps defers (database close, index close)
// honored on every exit path.
func run() error {
	selfID := flag.String("self", "", "your participant id")
	partnerID := flag.String("partner", "", "the other participant id")
	flag.Parse()
	if *selfID == "" || *partnerID == "" {
		return fmt.Errorf("both -self and -partner are required")
	}

	_ = godotenv.Load()
	config, err := internal.LoadConfig()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return fmt.Errorf("index opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing bluge index...")
		_ = blugeWriter.Close()
	}()

	masker, err := loadMasker(config)
	if err != nil {
		return err
	}

	repository := repositories.NewConversationRepository(db, log)
	index := repositories.NewMessageIndex(blugeWriter, log)
	supervisor := workers.NewSupervisor(log, config.RestartInterval)
	hub := runtime.NewHub(log, supervisor, repository, index,
		config.BufferSize, config.SinkTimeout, config.MonitorInterval)

	inbox := projection.NewInbox()
	hub.Add(inbox)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	hub.Start(ctx)
	defer hub.Stop()

	service := services.NewChatService(log, hub, masker)
	conversation := service.Open(*selfID, *partnerID)
	defer conversation.Close()

	renderer := newRenderer(*selfID)
	conversation.Controller.SetOnChange(func() {
		renderer.Render(conversation.Controller.State())
	})
	renderer.Render(conversation.Controller.State())

	color.Yellow.Printf("Chatting with %s — type a message, /find <terms>, /inbox, or Ctrl-D to quit\n", *partnerID)
	return inputLoop(ctx, service, conversation, inbox, *selfID, *partnerID)
}

func inputLoop(ctx context.Context, service *services.ChatService,
	conversation *services.Conversation, inbox *projection.Inbox, selfID, partnerID string) error {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "/find "):
			terms := strings.TrimPrefix(line, "/find ")
			hits, err := service.Search(ctx, selfID, partnerID, terms, 10)
			if err != nil {
				color.Red.Printf("search failed: %v\n", err)
				continue
			}
			for _, hit := range hits {
				color.Yellow.Printf("[%s] %s: %s\n",
					hit.CreatedAt.Format("15:04:05"), hit.SenderID, hit.Content)
			}
		case line == "/inbox":
			for _, preview := range inbox.Previews() {
				color.Yellow.Printf("%s — %s: %s (%s)\n",
					preview.Conversation, preview.LastSender, preview.LastMessage, preview.Language)
			}
		default:
			conversation.Coordinator.SetDraft(line)
			conversation.Coordinator.Send(ctx)
			if state := conversation.Coordinator.State(); state.SendError != "" {
				color.Red.Println(state.SendError)
			}
		}
	}
	return scanner.Err()
}

func loadMasker(config internal.Config) (*moderation.Masker, error) {
	if config.MaskedWordsFile == "" {
		return nil, nil
	}
	data, err := os.ReadFile(config.MaskedWordsFile)
	if err != nil {
		return nil, fmt.Errorf("masked words file: %w", err)
	}
	var words []string
	for _, line := range strings.Split(string(data), "\n") {
		if word := strings.TrimSpace(line); word != "" {
			words = append(words, word)
		}
	}
	mask, err := config.MaskRune()
	if err != nil {
		return nil, err
	}
	return moderation.NewMasker(words, mask)
}

// renderer prints only the messages not yet shown, so live deliveries and
// full-snapshot semantics still read like a scrolling conversation.
type renderer struct {
	mu      sync.Mutex
	selfID  string
	printed int
}

func newRenderer(selfID string) *renderer {
	return &renderer{selfID: selfID}
}

func (r *renderer) Render(state livesync.State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if state.FetchError != "" {
		color.Red.Println(state.FetchError)
		return
	}
	if state.IsLoading {
		return
	}
	if len(state.Messages) < r.printed {
		// Snapshot shrank (conversation switch): start over.
		r.printed = 0
	}
	for _, message := range state.Messages[r.printed:] {
		r.print(message)
	}
	r.printed = len(state.Messages)
}

func (r *renderer) print(message domain.Message) {
	stamp := message.CreatedAt.Format("15:04:05")
	if message.SenderID == r.selfID {
		color.Green.Printf("[%s] you: %s\n", stamp, message.Content)
		return
	}
	color.Cyan.Printf("[%s] %s: %s\n", stamp, message.SenderID, message.Content)
}
