package service

import (
	"bytes"
	"io"
	"sync"

	"github.com/google/uuid"

	"ansible-bootstrap/internal/model"
)

// TaskService tracks the progress of setup runs started over HTTP.
type TaskService struct {
	mu    sync.Mutex
	tasks map[string]*model.ProgressResponse
}

func NewTaskService() *TaskService {
	return &TaskService{tasks: make(map[string]*model.ProgressResponse)}
}

func (s *TaskService) Create(message string) string {
	id := uuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[id] = &model.ProgressResponse{
		Success:  true,
		Progress: 0,
		Status:   model.StatusRunning,
		Logs:     []string{message},
	}
	return id
}

func (s *TaskService) AppendLog(id, line string) {
	s.Update(id, func(p *model.ProgressResponse) {
		p.Logs = append(p.Logs, line)
	})
}

// Update applies fn to the task under lock. Unknown IDs are ignored.
func (s *TaskService) Update(id string, fn func(p *model.ProgressResponse)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.tasks[id]; ok {
		fn(p)
	}
}

// Get returns a snapshot that is safe to use after the lock is released.
func (s *TaskService) Get(id string) (model.ProgressResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.tasks[id]
	if !ok {
		return model.ProgressResponse{}, false
	}
	snapshot := *p
	snapshot.Logs = append([]string(nil), p.Logs...)
	return snapshot, true
}

// Finish marks the task done with the given outcome.
func (s *TaskService) Finish(id string, ok bool, message string) {
	s.Update(id, func(p *model.ProgressResponse) {
		p.Logs = append(p.Logs, message)
		if ok {
			p.Status = model.StatusSuccess
			p.Progress = 100
			return
		}
		p.Success = false
		p.Status = model.StatusError
		if p.Error == "" {
			p.Error = message
		}
	})
}

// Writer returns an io.Writer that appends each complete line to the task log.
func (s *TaskService) Writer(id string) io.Writer {
	return &taskWriter{tasks: s, id: id}
}

type taskWriter struct {
	tasks *TaskService
	id    string
	mu    sync.Mutex
	buf   []byte
}

func (w *taskWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		line := string(bytes.TrimRight(w.buf[:i], "\r"))
		w.buf = w.buf[i+1:]
		if line != "" {
			w.tasks.AppendLog(w.id, line)
		}
	}
	return len(p), nil
}
