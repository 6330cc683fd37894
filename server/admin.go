package server

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"minerduel/mechanics"
)

// Server 汇总 HTTP 处理器依赖
type Server struct {
	Remote *RemotePointService
	Mech   *mechanics.Mechanics
	Log    *zap.SugaredLogger
}

// Routes 注册全部 HTTP 路由
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleWS)
	mux.HandleFunc("/admin/config", s.HandleAdminConfig)
	mux.HandleFunc("/admin/sessions", s.HandleSessions)
	mux.HandleFunc("/metrics", s.HandleMetrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// HandleAdminConfig 读取与热更新地图交换节奏（毫秒），只影响之后开始的会话
// GET  /admin/config  返回当前配置与前几次触发的延迟预览
// POST /admin/config  以 JSON 载荷更新部分字段
func (s *Server) HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	type cfg struct {
		StartSwitchDelayMs *int64 `json:"startSwitchDelayMs,omitempty"`
		SwitchDeltaMs      *int64 `json:"switchDeltaMs,omitempty"`
		SwitchDelayMinMs   *int64 `json:"switchDelayMinMs,omitempty"`
	}
	sessions := s.Mech.Sessions

	switch r.Method {
	case http.MethodGet:
		p := sessions.Settings().Swap
		startMs, deltaMs, minMs := p.Start.Milliseconds(), p.Delta.Milliseconds(), p.Min.Milliseconds()
		preview := make([]int64, 0, 8)
		for _, d := range mechanics.DecaySequence(p, 8) {
			preview = append(preview, d.Milliseconds())
		}
		writeJSON(w, map[string]any{
			"config":    cfg{StartSwitchDelayMs: &startMs, SwitchDeltaMs: &deltaMs, SwitchDelayMinMs: &minMs},
			"previewMs": preview,
		})
		return
	case http.MethodPost:
		var body cfg
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		p := sessions.Settings().Swap
		if body.StartSwitchDelayMs != nil {
			p.Start = time.Duration(*body.StartSwitchDelayMs) * time.Millisecond
		}
		if body.SwitchDeltaMs != nil {
			p.Delta = time.Duration(*body.SwitchDeltaMs) * time.Millisecond
		}
		if body.SwitchDelayMinMs != nil {
			p.Min = time.Duration(*body.SwitchDelayMinMs) * time.Millisecond
		}
		if p.Min <= 0 || p.Start < p.Min || p.Delta < 0 {
			http.Error(w, "require 0 < min <= start and delta >= 0", http.StatusBadRequest)
			return
		}
		sessions.SetSwapPolicy(p)
		writeJSON(w, map[string]any{"ok": true})
		s.Log.Infof("config updated: switch start=%s delta=%s min=%s", p.Start, p.Delta, p.Min)
		return
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
}

// SessionView 会话的只读视图
type SessionView struct {
	ID       mechanics.SessionID `json:"id"`
	Single   bool                `json:"single"`
	Finished bool                `json:"finished"`
	Healthy  bool                `json:"healthy"`
	Players  []PlayerView        `json:"players"`
}

type PlayerView struct {
	Account mechanics.AccountID `json:"account"`
	Score   int                 `json:"score"`
	Mouse   mechanics.Coords    `json:"mouse"`
	Move    mechanics.Move      `json:"move"`
}

// HandleSessions 列出存活会话
// GET /admin/sessions
func (s *Server) HandleSessions(w http.ResponseWriter, r *http.Request) {
	live := s.Mech.Sessions.Sessions()
	views := make([]SessionView, 0, len(live))
	for _, gs := range live {
		views = append(views, s.viewOf(gs))
	}
	writeJSON(w, views)
}

func (s *Server) viewOf(gs *mechanics.GameSession) SessionView {
	gs.Lock()
	defer gs.Unlock()
	v := SessionView{
		ID:       gs.ID(),
		Single:   gs.IsSinglePlay(),
		Finished: gs.IsFinished(),
		Healthy:  s.Mech.Sessions.CheckHealthState(gs),
	}
	for _, p := range gs.Players() {
		v.Players = append(v.Players, PlayerView{
			Account: p.AccountID(),
			Score:   mechanics.MechanicOf(p).Score(),
			Mouse:   mechanics.MouseOf(p).Mouse(),
			Move:    mechanics.MoveOf(p).Move(),
		})
	}
	return v
}

// HandleMetrics 输出运行指标
// GET /metrics
func (s *Server) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"live_sessions": len(s.Mech.Sessions.Sessions()),
		"connected":     s.Remote.Connected(),
		"scheduled":     s.Mech.Scheduler.Pending(),
		"metrics":       s.Mech.Metrics.Snapshot(),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
