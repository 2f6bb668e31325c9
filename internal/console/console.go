package console

import (
	"bufio"
	"io"
	"os"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/kingdomsgo/server/internal/core/queue"
	"go.uber.org/zap"
)

// CommandFunc handles one console command. Runs on the game loop goroutine.
type CommandFunc func(args []string)

type commandEntry struct {
	description string
	handler     CommandFunc
}

// System reads operator commands from stdin on a dedicated goroutine and
// queues them for execution on the game loop (ProcessPending).
type System struct {
	commands map[string]*commandEntry
	pending  *queue.Queue[string]
	running  atomic.Bool
	input    io.Reader
	log      *zap.Logger
}

func NewSystem(log *zap.Logger) *System {
	return &System{
		commands: make(map[string]*commandEntry),
		pending:  queue.New[string](),
		input:    os.Stdin,
		log:      log,
	}
}

// Register adds a command. Called during startup wiring.
func (s *System) Register(name, description string, fn CommandFunc) {
	s.commands[name] = &commandEntry{description: description, handler: fn}
}

// Start launches the stdin reader goroutine.
func (s *System) Start() {
	if s.running.Load() {
		return
	}
	s.Register("help", "list available commands", func([]string) {
		s.printHelp()
	})
	s.running.Store(true)
	go s.readLoop()
	s.log.Info("console started, type 'help' for commands")
}

// Stop clears the run flag. The reader goroutine is blocked in the OS read
// and exits on the next line or when stdin closes.
func (s *System) Stop() {
	s.running.Store(false)
}

// ProcessPending drains and executes queued command lines. Game loop only.
func (s *System) ProcessPending() {
	for {
		line, ok := s.pending.TryPop()
		if !ok {
			return
		}
		tokens := strings.Fields(line)
		if len(tokens) == 0 {
			continue
		}
		entry, ok := s.commands[tokens[0]]
		if !ok {
			s.log.Warn("unknown command, type 'help' for the list", zap.String("command", tokens[0]))
			continue
		}
		entry.handler(tokens[1:])
	}
}

// readLoop blocks on stdin and pushes raw lines to the pending queue.
func (s *System) readLoop() {
	scanner := bufio.NewScanner(s.input)
	for s.running.Load() && scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		s.pending.Push(line)
	}
}

func (s *System) printHelp() {
	names := make([]string, 0, len(s.commands))
	for name := range s.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	s.log.Info("available commands:")
	for _, name := range names {
		s.log.Info("  " + name + " - " + s.commands[name].description)
	}
}
