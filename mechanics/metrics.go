package mechanics

import (
	"sync/atomic"
)

// Metrics 记录机制层运行期的关键指标（用于监控与调试）
type Metrics struct {
	TickCount          int64 // 统计的 Tick 次数
	TotalTickNs        int64 // Tick 累计耗时（纳秒）
	SnapsAccepted      int64 // 进入缓冲区的快照数
	SnapsIgnored       int64 // 因玩家不在对局中被忽略的快照数
	SessionsStarted    int64
	SessionsFinished   int64
	SessionsTerminated int64 // 实际执行了断开通知的终止次数
	ErrorTerminations  int64 // 其中因错误（掉线等）终止的次数
	SwapsFired         int64 // 地图交换任务的有效触发次数
	DeliveryFailures   int64 // 结束通知投递失败次数
}

func (m *Metrics) IncSnapsAccepted()   { atomic.AddInt64(&m.SnapsAccepted, 1) }
func (m *Metrics) IncSnapsIgnored()    { atomic.AddInt64(&m.SnapsIgnored, 1) }
func (m *Metrics) IncStarted()         { atomic.AddInt64(&m.SessionsStarted, 1) }
func (m *Metrics) IncFinished()        { atomic.AddInt64(&m.SessionsFinished, 1) }
func (m *Metrics) IncSwapsFired()      { atomic.AddInt64(&m.SwapsFired, 1) }
func (m *Metrics) IncDeliveryFailure() { atomic.AddInt64(&m.DeliveryFailures, 1) }

func (m *Metrics) IncTerminated(isError bool) {
	atomic.AddInt64(&m.SessionsTerminated, 1)
	if isError {
		atomic.AddInt64(&m.ErrorTerminations, 1)
	}
}

func (m *Metrics) AddTick(ns int64) {
	atomic.AddInt64(&m.TickCount, 1)
	atomic.AddInt64(&m.TotalTickNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *Metrics) Snapshot() map[string]any {
	tick := atomic.LoadInt64(&m.TickCount)
	total := atomic.LoadInt64(&m.TotalTickNs)
	var avgMs float64
	if tick > 0 {
		avgMs = float64(total) / float64(tick) / 1e6
	}
	return map[string]any{
		"tick_count":          tick,
		"avg_tick_ms":         avgMs,
		"snaps_accepted":      atomic.LoadInt64(&m.SnapsAccepted),
		"snaps_ignored":       atomic.LoadInt64(&m.SnapsIgnored),
		"sessions_started":    atomic.LoadInt64(&m.SessionsStarted),
		"sessions_finished":   atomic.LoadInt64(&m.SessionsFinished),
		"sessions_terminated": atomic.LoadInt64(&m.SessionsTerminated),
		"error_terminations":  atomic.LoadInt64(&m.ErrorTerminations),
		"swaps_fired":         atomic.LoadInt64(&m.SwapsFired),
		"delivery_failures":   atomic.LoadInt64(&m.DeliveryFailures),
	}
}
