package pipeline

import "time"

// NodeStatus is the outcome of one node within a pass.
type NodeStatus string

const (
	StatusOK      NodeStatus = "ok"
	StatusFailed  NodeStatus = "failed"
	StatusSkipped NodeStatus = "skipped"
)

// NodeReport records one node's execution within a pass.
type NodeReport struct {
	Name     string        `json:"name"`
	Role     string        `json:"role"`
	Status   NodeStatus    `json:"status"`
	Duration time.Duration `json:"duration"`
}

// Report summarizes the most recent pass: per-node outcomes in execution
// order plus the pass total.
type Report struct {
	Pass     string        `json:"pass"`
	Duration time.Duration `json:"duration"`
	Nodes    []NodeReport  `json:"nodes"`
	Err      error         `json:"-"`
}

// Report returns a copy of the most recent pass report, or nil before any
// pass has run.
func (p *Pipeline) Report() *Report {
	if p.report == nil {
		return nil
	}
	r := *p.report
	r.Nodes = make([]NodeReport, len(p.report.Nodes))
	copy(r.Nodes, p.report.Nodes)
	return &r
}

func (p *Pipeline) beginReport(pass string) {
	p.report = &Report{Pass: pass}
}

func (p *Pipeline) reportNode(n *Node, status NodeStatus, d time.Duration) {
	if p.report == nil {
		return
	}
	p.report.Nodes = append(p.report.Nodes, NodeReport{
		Name:     n.name,
		Role:     n.role.String(),
		Status:   status,
		Duration: d,
	})
}

func (p *Pipeline) endReport(d time.Duration, err error) {
	if p.report == nil {
		return
	}
	p.report.Duration = d
	p.report.Err = err
}
