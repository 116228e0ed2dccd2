package llm

import (
	"context"
	"errors"
	"sync"
)

var ErrNoScriptedReply = errors.New("no scripted reply for purpose")

// Scripted 는 테스트와 로컬 실행용 클라이언트다. 목적별로 준비된 응답을 돌려준다.
type Scripted struct {
	mu        sync.Mutex
	responses map[string][]ScriptedReply
	Requests  []Request
}

type ScriptedReply struct {
	Text string
	Err  error
}

func NewScripted() *Scripted {
	return &Scripted{responses: map[string][]ScriptedReply{}}
}

// On 은 purpose 호출에 대한 응답을 순서대로 쌓는다. 마지막 응답은 계속 재사용된다.
func (s *Scripted) On(purpose string, replies ...ScriptedReply) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[purpose] = append(s.responses[purpose], replies...)
	return s
}

func (s *Scripted) Complete(_ context.Context, req Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Requests = append(s.Requests, req)

	queue := s.responses[req.Purpose]
	if len(queue) == 0 {
		return "", ErrNoScriptedReply
	}
	reply := queue[0]
	if len(queue) > 1 {
		s.responses[req.Purpose] = queue[1:]
	}
	return reply.Text, reply.Err
}

// Calls 는 purpose 로 들어온 호출 수를 센다.
func (s *Scripted) Calls(purpose string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.Requests {
		if r.Purpose == purpose {
			n++
		}
	}
	return n
}
