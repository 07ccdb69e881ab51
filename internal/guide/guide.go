// Package guide is the document-type decision tree: a short series of
// questions that recommends which kind of governance document to write.
package guide

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownOption is returned when an answer matches no option of the
// current question.
var ErrUnknownOption = errors.New("unknown option")

// Node is a question with its options.
type Node struct {
	Question string
	Options  []Option
}

// Outcome is where an option leads: a *Node or a Result.
type Outcome interface {
	outcome()
}

// Option is one answer to a question.
type Option struct {
	Label string
	Then  Outcome
}

// Result is a recommended document type.
type Result struct {
	Type        string
	Description string
}

func (*Node) outcome()  {}
func (Result) outcome() {}

// Default is the governance document decision tree.
var Default = &Node{
	Question: "What is your primary goal?",
	Options: []Option{
		{
			Label: "Define mandatory high-level requirements",
			Then: &Node{
				Question: "Is this for the entire organization or a specific technical area?",
				Options: []Option{
					{Label: "Entire Organization", Then: Result{Type: "Policy", Description: "You need a Policy to set the cultural and legal foundation."}},
					{Label: "Specific Technical Area", Then: Result{Type: "Standard", Description: "You need a Standard to enforce technical consistency (e.g. an Encryption Standard)."}},
				},
			},
		},
		{
			Label: "Provide step-by-step instructions",
			Then: &Node{
				Question: "Is this for routine operations or for responding to an active incident?",
				Options: []Option{
					{Label: "Routine Operations", Then: Result{Type: "SOP", Description: "Use an SOP for repeatable business-as-usual tasks."}},
					{
						Label: "Incident Response",
						Then: &Node{
							Question: "Is this a strategic coordination plan or low-level technical commands?",
							Options: []Option{
								{Label: "Strategic Coordination", Then: Result{Type: "Playbook", Description: "A Playbook helps coordinate high-pressure responses."}},
								{Label: "Technical Commands", Then: Result{Type: "Runbook", Description: "A Runbook provides the exact copy-paste commands for engineers."}},
							},
						},
					},
				},
			},
		},
		{Label: "Offer advice and best practices", Then: Result{Type: "Guideline", Description: "Use a Guideline to recommend best practices without making them mandatory."}},
	},
}

// Step is one answered question on a walk through the tree.
type Step struct {
	Question string
	Answer   string
}

// Walk follows answers from root. Each answer is an option label, matched
// case-insensitively, or its 1-based position. When the answers run out
// before a result is reached, Walk returns the pending node and a nil
// result.
func Walk(root *Node, answers []string) (steps []Step, pending *Node, result *Result, err error) {
	node := root
	for _, answer := range answers {
		if node == nil {
			return steps, nil, result, fmt.Errorf("answer %q given after a result was reached", answer)
		}
		opt, err := node.choose(answer)
		if err != nil {
			return steps, node, nil, err
		}
		steps = append(steps, Step{Question: node.Question, Answer: opt.Label})
		switch then := opt.Then.(type) {
		case Result:
			result = &then
			node = nil
		case *Node:
			node = then
		default:
			return steps, node, nil, fmt.Errorf("option %q leads nowhere", opt.Label)
		}
	}
	return steps, node, result, nil
}

func (n *Node) choose(answer string) (Option, error) {
	answer = strings.TrimSpace(answer)
	if idx, err := strconv.Atoi(answer); err == nil {
		if idx >= 1 && idx <= len(n.Options) {
			return n.Options[idx-1], nil
		}
		return Option{}, fmt.Errorf("%w: %d (question has %d options)", ErrUnknownOption, idx, len(n.Options))
	}
	for _, opt := range n.Options {
		if strings.EqualFold(opt.Label, answer) {
			return opt, nil
		}
	}
	return Option{}, fmt.Errorf("%w: %q", ErrUnknownOption, answer)
}

// Results lists every reachable result, depth first.
func Results(root *Node) []Result {
	var out []Result
	var walk func(n *Node)
	walk = func(n *Node) {
		if n == nil {
			return
		}
		for _, opt := range n.Options {
			switch then := opt.Then.(type) {
			case Result:
				out = append(out, then)
			case *Node:
				walk(then)
			}
		}
	}
	walk(root)
	return out
}
