package test

import (
	"context"
	"log/slog"
	"time"

	"github.com/blugelabs/bluge"
	badger "github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/suite"

	"duochat/moderation"
	"duochat/projection"
	"duochat/repositories"
	"duochat/runtime"
	"duochat/runtime/workers"
	"duochat/services"
)

// BaseChatSuite boots a complete in-process chat core on throwaway
// storage: real badger, real bluge, supervised fanout, inbox projection.
type BaseChatSuite struct {
	suite.Suite
	Config Config

	Hub     *runtime.Hub
	Service *services.ChatService
	Inbox   *projection.Inbox

	db     *badger.DB
	writer *bluge.Writer
	cancel context.CancelFunc
}

func (s *BaseChatSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
}

func (s *BaseChatSuite) SetupTest() {
	log := slog.Default()

	db, err := badger.Open(badger.DefaultOptions(s.T().TempDir()).WithLogger(nil))
	s.Require().NoError(err)
	s.db = db

	writer, err := bluge.OpenWriter(bluge.DefaultConfig(s.T().TempDir()))
	s.Require().NoError(err)
	s.writer = writer

	repository := repositories.NewConversationRepository(db, log)
	index := repositories.NewMessageIndex(writer, log)
	supervisor := workers.NewSupervisor(log, 50*time.Millisecond)

	s.Hub = runtime.NewHub(log, supervisor, repository, index,
		s.Config.BufferSize, s.Config.Wait, 0)
	s.Inbox = projection.NewInbox()
	s.Hub.Add(s.Inbox)

	masker, err := moderation.NewMasker([]string{"classified"}, '*')
	s.Require().NoError(err)
	s.Service = services.NewChatService(log, s.Hub, masker)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.Hub.Start(ctx)
}

func (s *BaseChatSuite) TearDownTest() {
	s.cancel()
	s.Hub.Stop()
	// Give in-flight fanout iterations a moment to return before the
	// stores go away underneath them.
	time.Sleep(100 * time.Millisecond)
	s.Require().NoError(s.writer.Close())
	s.Require().NoError(s.db.Close())
}

// Eventually polls the condition within the suite's configured window.
func (s *BaseChatSuite) Eventually(condition func() bool, msgAndArgs ...any) {
	s.Require().Eventually(condition, s.Config.Wait, s.Config.Poll, msgAndArgs...)
}
