package panel

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/Satwikmbadiger/EmoTutor/internal/model/emotion"
	panelmodel "github.com/Satwikmbadiger/EmoTutor/internal/model/panel"
	panelservice "github.com/Satwikmbadiger/EmoTutor/internal/service/panel"
	"github.com/Satwikmbadiger/EmoTutor/internal/service/session"
)

// WebSocketHandler 面板的WebSocket处理器：一条连接对应一次聊天视图的挂载，
// 浏览器推送帧与指针事件，网关推回面板状态。
type WebSocketHandler struct {
	classifier panelservice.Classifier
	controller *session.Controller
	panelCfg   panelservice.Config
	upgrader   websocket.Upgrader
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(classifier panelservice.Classifier, controller *session.Controller, panelCfg panelservice.Config) *WebSocketHandler {
	return &WebSocketHandler{
		classifier: classifier,
		controller: controller,
		panelCfg:   panelCfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/panel/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// FrameMessage 一帧编码后的画面，image 为 base64 或 data URL。
type FrameMessage struct {
	Image string `json:"image"`
}

// DeniedMessage 浏览器侧的摄像头拒绝。
type DeniedMessage struct {
	Message string `json:"message"`
}

// PointerMessage 指针事件的视口坐标。
type PointerMessage struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ResizeMessage 视口尺寸变化。
type ResizeMessage struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	var writeMu sync.Mutex
	send := func(msgType string, data interface{}) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(outgoingMessage{
			Type:      msgType,
			Data:      data,
			Timestamp: time.Now().UnixMilli(),
		})
	}

	cam := newRemoteCamera(
		func() error { return send("camera", map[string]string{"action": "start"}) },
		func() error { return send("camera", map[string]string{"action": "stop"}) },
	)

	p := panelservice.New(cam, h.classifier, h.panelCfg)
	p.OnEmotion(func(sample emotion.Sample) {
		h.controller.SetEmotion(sample)
	})
	p.OnChange(func() {
		if err := send("panel", p.View()); err != nil {
			log.Printf("[ws] failed to push panel state: %v", err)
		}
	})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	// The camera must be released on every exit path, including abrupt
	// disconnects.
	defer p.Hide()

	log.Printf("[ws] panel connection opened")
	_ = send("panel", p.View())

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] panel connection error: %v", err)
			}
			log.Printf("[ws] panel connection closed")
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			log.Printf("[ws] discarding malformed message: %v", err)
			continue
		}

		h.dispatch(ctx, p, cam, msg)
	}
}

func (h *WebSocketHandler) dispatch(ctx context.Context, p *panelservice.Panel, cam *remoteCamera, msg inboundMessage) {
	switch msg.Type {
	case "show":
		// Acquire blocks until the browser responds, so it must not stall
		// the read loop that delivers the first frame.
		go p.Show(ctx)
	case "hide":
		p.Hide()
	case "frame":
		var frame FrameMessage
		if err := json.Unmarshal(msg.Data, &frame); err != nil {
			return
		}
		data, err := decodeFrame(frame.Image)
		if err != nil {
			log.Printf("[ws] discarding undecodable frame: %v", err)
			return
		}
		cam.SubmitFrame(data)
	case "camera-denied":
		var denied DeniedMessage
		if err := json.Unmarshal(msg.Data, &denied); err != nil || denied.Message == "" {
			cam.Deny("camera access denied")
			return
		}
		cam.Deny(denied.Message)
	case "drag-start":
		var pointer PointerMessage
		if err := json.Unmarshal(msg.Data, &pointer); err != nil {
			return
		}
		p.BeginDrag(pointer.X, pointer.Y)
	case "drag-move":
		var pointer PointerMessage
		if err := json.Unmarshal(msg.Data, &pointer); err != nil {
			return
		}
		p.Drag(pointer.X, pointer.Y)
	case "drag-end":
		p.EndDrag()
	case "resize":
		var size ResizeMessage
		if err := json.Unmarshal(msg.Data, &size); err != nil {
			return
		}
		p.Resize(panelmodel.Viewport{Width: size.Width, Height: size.Height})
	default:
		log.Printf("[ws] unknown message type: %s", msg.Type)
	}
}

// decodeFrame accepts either a bare base64 payload or a canvas data URL.
func decodeFrame(image string) ([]byte, error) {
	if idx := strings.Index(image, ","); idx >= 0 && strings.HasPrefix(image, "data:") {
		image = image[idx+1:]
	}
	return base64.StdEncoding.DecodeString(image)
}
