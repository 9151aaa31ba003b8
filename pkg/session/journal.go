// Copyright 2025 agentmesh authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package session

import (
	"context"

	"github.com/agentmesh/agentmesh/pkg/chat"
	"github.com/agentmesh/agentmesh/pkg/journal"
	"github.com/agentmesh/agentmesh/pkg/origin"
)

// Sink receives every message a turn produces, in emission order, as it
// happens. An error Sink returns for a message written during the turn
// is logged by the RunContext that wrote it and the turn goes on; the
// error from emitting the terminal message is returned by Runner.Run.
type Sink func(*chat.Message) error

// streamingJournal is the request's root journal: it behaves exactly
// like journal.Originating (stamps origin, keeps an in-memory history
// other RunContexts rehydrate from) but also forwards each message to a
// Sink the instant it's written, which is what turns SubmitMessage's
// synchronous recursion into a live event stream for the caller.
//
// It duplicates Originating's stamp-if-unset rule itself, rather than
// delegating to root.Write and reading the result back, because Write
// only returns an error: the stamped copy root.History() would later
// expose is not available to hand to sink at the point of the call.
type streamingJournal struct {
	root   *journal.Originating
	origin origin.Origin
	sink   Sink
}

func newStreamingJournal(frontMan string, sink Sink) *streamingJournal {
	root := origin.Root(frontMan)
	return &streamingJournal{root: journal.NewOriginating(root, nil), origin: root, sink: sink}
}

func (j *streamingJournal) Write(ctx context.Context, msg *chat.Message) error {
	stamped := msg
	if msg.Origin == nil {
		cp := *msg
		cp.Origin = j.origin
		stamped = &cp
	}

	if err := j.root.Write(ctx, stamped); err != nil {
		return err
	}
	return j.sink(stamped)
}

func (j *streamingJournal) History() []*chat.Message {
	return j.root.History()
}

var _ journal.Journal = (*streamingJournal)(nil)
