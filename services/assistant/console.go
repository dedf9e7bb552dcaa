package assistantsvc

import (
	"context"
	"log"
	"sync"

	"github.com/trezcool/kazi/core/assistant"
)

// consoleService logs prompts instead of calling a model; DEV and tests.
type consoleService struct {
	mu            sync.Mutex
	prompts       []string
	reply         string
	err           error
	disableOutput bool
}

var _ assistant.PromptService = (*consoleService)(nil)

func NewConsoleService() *consoleService {
	return &consoleService{reply: `{"response": "This is a canned reply."}`}
}

func NewConsoleServiceMock(reply string, err error) *consoleService {
	return &consoleService{reply: reply, err: err, disableOutput: true}
}

func (svc *consoleService) Generate(_ context.Context, prompt string, _ bool) (string, error) {
	svc.mu.Lock()
	svc.prompts = append(svc.prompts, prompt)
	reply, err := svc.reply, svc.err
	svc.mu.Unlock()

	if !svc.disableOutput {
		log.Println(prompt)
	}
	if err != nil {
		return "", err
	}
	return reply, nil
}

func (svc *consoleService) SetReply(reply string, err error) {
	svc.mu.Lock()
	svc.reply, svc.err = reply, err
	svc.mu.Unlock()
}

func (svc *consoleService) Prompts() []string {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]string(nil), svc.prompts...)
}
