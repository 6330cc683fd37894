package mechanics

import "time"

// DecayPolicy 递减间隔：每次触发后 next = max(cur-Delta, Min)
type DecayPolicy struct {
	Start time.Duration `json:"start"`
	Delta time.Duration `json:"delta"`
	Min   time.Duration `json:"min"`
}

func (p DecayPolicy) Next(cur time.Duration) time.Duration {
	return max(cur-p.Delta, p.Min)
}

// DecaySequence 前 n 次触发的延迟序列
func DecaySequence(p DecayPolicy, n int) []time.Duration {
	seq := make([]time.Duration, 0, n)
	cur := p.Start
	for i := 0; i < n; i++ {
		seq = append(seq, cur)
		cur = p.Next(cur)
	}
	return seq
}

// SwapTask 周期性打乱地图，间隔逐次缩短直到下限，会话结束后自行停止
type SwapTask struct {
	session *GameSession
	policy  DecayPolicy
	current time.Duration
	metrics *Metrics
}

func NewSwapTask(session *GameSession, policy DecayPolicy, metrics *Metrics) *SwapTask {
	return &SwapTask{session: session, policy: policy, current: policy.Start, metrics: metrics}
}

func (t *SwapTask) Session() *GameSession { return t.session }

// Current 下一次触发对应的延迟
func (t *SwapTask) Current() time.Duration { return t.current }

func (t *SwapTask) Operate() (time.Duration, bool) {
	t.session.Lock()
	defer t.session.Unlock()
	// 锁内再次检查：与终止并发时至多多触发一次，但不会再改动状态
	if t.session.IsFinished() {
		return 0, false
	}
	if m := t.session.Map(); m != nil {
		m.Shuffle()
	}
	if t.metrics != nil {
		t.metrics.IncSwapsFired()
	}
	t.current = t.policy.Next(t.current)
	return t.current, true
}
