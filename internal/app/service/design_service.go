package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ikkim/tshirt-backend/config"
	"github.com/ikkim/tshirt-backend/internal/app/model"
	"github.com/ikkim/tshirt-backend/internal/app/repository"
	"github.com/ikkim/tshirt-backend/internal/session"
	"github.com/ikkim/tshirt-backend/internal/storage"
	"github.com/ikkim/tshirt-backend/pkg/logger"
	"gorm.io/gorm"
)

// SessionDesignField is the session field holding an anonymous visitor's design
const SessionDesignField = "temp_design"

var (
	ErrInvalidJSON    = errors.New("invalid JSON")
	ErrInvalidProduct = errors.New("invalid product")
	ErrInvalidColor   = errors.New("invalid color")
	ErrNoDesign       = errors.New("no design found")
)

type DesignService interface {
	Save(ctx context.Context, actor Actor, body []byte) (*SaveResult, error)
	Load(ctx context.Context, actor Actor) (*LoadedDesign, error)
}

// SaveResult carries the new design id, or SessionSaved for anonymous saves
type SaveResult struct {
	DesignID     uint
	SessionSaved bool
	Skipped      int
}

type Vec3View struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type DecalView struct {
	ImageURL string   `json:"imageUrl"`
	Position Vec3View `json:"position"`
	Rotation Vec3View `json:"rotation"`
	Size     Vec3View `json:"size"`
	Name     string   `json:"name"`
}

type TextView struct {
	Content  string   `json:"content"`
	Color    string   `json:"color"`
	Position Vec3View `json:"position"`
	Rotation Vec3View `json:"rotation"`
	Scale    Vec3View `json:"scale"`
	Name     string   `json:"name"`
}

// DesignView is a stored design projected back into the customizer's shape
type DesignView struct {
	ID      uint                  `json:"id"`
	Product model.ProductCategory `json:"product"`
	Color   string                `json:"color"`
	Decals  []DecalView           `json:"decals"`
	Texts   []TextView            `json:"texts"`
}

// LoadedDesign is either a projection of a stored design or the raw payload
// an anonymous visitor saved. The two shapes are not guaranteed to match
// beyond product, color, decals and texts.
type LoadedDesign struct {
	View *DesignView
	Raw  json.RawMessage
}

func (d *LoadedDesign) MarshalJSON() ([]byte, error) {
	if d.Raw != nil {
		return d.Raw, nil
	}
	return json.Marshal(d.View)
}

type designService struct {
	designRepo repository.DesignRepository
	sessions   session.Store
	files      storage.FileStore
	cfg        config.DesignConfig
}

func NewDesignService(
	designRepo repository.DesignRepository,
	sessions session.Store,
	files storage.FileStore,
	cfg config.DesignConfig,
) DesignService {
	return &designService{
		designRepo: designRepo,
		sessions:   sessions,
		files:      files,
		cfg:        cfg,
	}
}

func (s *designService) Save(ctx context.Context, actor Actor, body []byte) (*SaveResult, error) {
	payload, err := ParseDesignPayload(body)
	if err != nil {
		logger.Warn("Design save rejected: malformed body", actor.logFields())
		return nil, err
	}

	product, err := payload.ProductCategory()
	if err != nil {
		logger.Warn("Design save rejected: invalid product", actor.logFields())
		return nil, err
	}
	color, err := payload.ColorValue(s.cfg.StrictColor)
	if err != nil {
		logger.Warn("Design save rejected: invalid color", actor.logFields())
		return nil, err
	}

	if !actor.IsAuthenticated() {
		return s.saveToSession(ctx, actor, payload)
	}

	design := &model.Design{
		UserID:  &actor.UserID,
		Product: product,
		Color:   color,
	}

	skipped := 0
	for _, raw := range payload.Decals {
		decal, ok := decodeDecal(raw, s.files)
		if ok && s.cfg.VerifyDecalFiles {
			ok = s.decalFileExists(ctx, decal.Image)
		}
		if !ok {
			skipped++
			continue
		}
		design.Decals = append(design.Decals, decal)
	}
	for _, raw := range payload.Texts {
		text, ok := decodeText(raw, s.cfg.StrictColor)
		if !ok {
			skipped++
			continue
		}
		design.Texts = append(design.Texts, text)
	}

	if err := s.designRepo.Create(ctx, design); err != nil {
		logger.Error("Failed to save design", err, actor.logFields())
		return nil, err
	}

	logger.Info("Design saved", map[string]interface{}{
		"user_id":   actor.UserID,
		"design_id": design.ID,
		"product":   product,
		"decals":    len(design.Decals),
		"texts":     len(design.Texts),
		"skipped":   skipped,
	})
	return &SaveResult{DesignID: design.ID, Skipped: skipped}, nil
}

func (s *designService) saveToSession(ctx context.Context, actor Actor, payload *DesignPayload) (*SaveResult, error) {
	if actor.SessionKey == "" {
		return nil, ErrSessionRequired
	}

	if err := s.sessions.Set(ctx, actor.SessionKey, SessionDesignField, payload.Raw); err != nil {
		logger.Error("Failed to save design to session", err, actor.logFields())
		return nil, err
	}

	logger.Info("Design saved to session", map[string]interface{}{
		"session_key": actor.SessionKey,
		"bytes":       len(payload.Raw),
	})
	return &SaveResult{SessionSaved: true}, nil
}

func (s *designService) decalFileExists(ctx context.Context, image string) bool {
	exists, err := s.files.Exists(ctx, image)
	if err != nil {
		logger.Warn("Skipping decal: file check failed", map[string]interface{}{
			"image": image,
			"error": err.Error(),
		})
		return false
	}
	if !exists {
		logger.Debug("Skipping decal: file not found", map[string]interface{}{
			"image": image,
		})
	}
	return exists
}

func (s *designService) Load(ctx context.Context, actor Actor) (*LoadedDesign, error) {
	if !actor.IsAuthenticated() {
		return s.loadFromSession(ctx, actor)
	}

	design, err := s.designRepo.FindLatestByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoDesign
		}
		logger.Error("Failed to load design", err, actor.logFields())
		return nil, err
	}

	logger.Debug("Design loaded", map[string]interface{}{
		"user_id":   actor.UserID,
		"design_id": design.ID,
	})
	return &LoadedDesign{View: s.project(design)}, nil
}

func (s *designService) loadFromSession(ctx context.Context, actor Actor) (*LoadedDesign, error) {
	if actor.SessionKey == "" {
		return nil, ErrNoDesign
	}

	raw, err := s.sessions.Get(ctx, actor.SessionKey, SessionDesignField)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrNoDesign
		}
		logger.Error("Failed to load design from session", err, actor.logFields())
		return nil, fmt.Errorf("load session design: %w", err)
	}
	return &LoadedDesign{Raw: raw}, nil
}

func (s *designService) project(design *model.Design) *DesignView {
	view := &DesignView{
		ID:      design.ID,
		Product: design.Product,
		Color:   design.Color,
		Decals:  make([]DecalView, 0, len(design.Decals)),
		Texts:   make([]TextView, 0, len(design.Texts)),
	}

	for _, d := range design.Decals {
		view.Decals = append(view.Decals, DecalView{
			ImageURL: s.files.URL(d.Image),
			Position: Vec3View{d.PosX, d.PosY, d.PosZ},
			Rotation: Vec3View{d.RotX, d.RotY, d.RotZ},
			Size:     Vec3View{d.SizeX, d.SizeY, d.SizeZ},
			Name:     fmt.Sprintf("Decal %d", d.ID),
		})
	}
	for _, t := range design.Texts {
		view.Texts = append(view.Texts, TextView{
			Content:  t.Content,
			Color:    t.Color,
			Position: Vec3View{t.PosX, t.PosY, t.PosZ},
			Rotation: Vec3View{t.RotX, t.RotY, t.RotZ},
			Scale:    Vec3View{t.ScaleX, t.ScaleY, t.ScaleZ},
			Name:     fmt.Sprintf("Text %d", t.ID),
		})
	}
	return view
}
