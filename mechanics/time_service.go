package mechanics

import (
	"sync/atomic"
	"time"
)

// TimeService 机制时钟：由 Tick 推进，而非直接读取墙钟，冷却计算与测试都依赖它
type TimeService struct {
	nanos atomic.Int64
}

func NewTimeService() *TimeService { return &TimeService{} }

// Tick 推进时钟
func (t *TimeService) Tick(d time.Duration) {
	t.nanos.Add(int64(d))
}

// Now 自启动以来的机制时间
func (t *TimeService) Now() time.Duration {
	return time.Duration(t.nanos.Load())
}

// Reset 清零（测试用）
func (t *TimeService) Reset() { t.nanos.Store(0) }
