package tokencount

import (
	"testing"

	"github.com/agentmesh/agentmesh/pkg/chat"
)

func TestCount_NonEmpty(t *testing.T) {
	c, err := NewCounter("gpt-4o")
	if err != nil {
		t.Fatalf("NewCounter: %v", err)
	}
	if n := c.Count("hello world"); n == 0 {
		t.Fatal("expected non-zero token count")
	}
}

func TestFitWithinLimit_DropsOldestFirst(t *testing.T) {
	c, err := NewCounter("gpt-4o")
	if err != nil {
		t.Fatalf("NewCounter: %v", err)
	}
	msgs := []*chat.Message{
		chat.Human("first message, fairly long so it costs real tokens"),
		chat.Human("second message"),
		chat.Human("third message, the most recent"),
	}
	fitted := c.FitWithinLimit(msgs, 26)
	if len(fitted) == 0 {
		t.Fatal("expected at least the most recent message to fit")
	}
	if fitted[len(fitted)-1].Text != msgs[len(msgs)-1].Text {
		t.Fatal("most recent message must always be retained")
	}
}

func TestEncodingForModel(t *testing.T) {
	if EncodingForModel("gpt-4o-mini") != "o200k_base" {
		t.Fatal("gpt-4o family should use o200k_base")
	}
	if EncodingForModel("claude-3-5-sonnet") != "cl100k_base" {
		t.Fatal("non-OpenAI models should fall back to cl100k_base")
	}
}
