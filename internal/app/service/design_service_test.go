package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/ikkim/tshirt-backend/config"
	"github.com/ikkim/tshirt-backend/internal/app/model"
	"github.com/ikkim/tshirt-backend/internal/app/repository"
	"github.com/ikkim/tshirt-backend/internal/session"
	"github.com/ikkim/tshirt-backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type designFixture struct {
	db      *gorm.DB
	service DesignService
	files   *storage.LocalStorage
	user    *model.User
}

func setupDesignServiceTest(t *testing.T, cfg config.DesignConfig) *designFixture {
	testDB := newTestDB(t)

	files, err := storage.NewLocalStorage(t.TempDir(), "/media/")
	require.NoError(t, err)

	sessions := session.NewDBStore(repository.NewSessionRepository(testDB), time.Hour)
	svc := NewDesignService(repository.NewDesignRepository(testDB), sessions, files, cfg)

	return &designFixture{
		db:      testDB,
		service: svc,
		files:   files,
		user:    createTestUser(t, testDB, "designer@example.com"),
	}
}

func strictConfig() config.DesignConfig {
	return config.DesignConfig{StrictColor: true}
}

func countDesigns(t *testing.T, conn *gorm.DB) int64 {
	var n int64
	require.NoError(t, conn.Model(&model.Design{}).Count(&n).Error)
	return n
}

func TestDesignService_Save_Products(t *testing.T) {
	f := setupDesignServiceTest(t, strictConfig())
	ctx := context.Background()
	actor := Actor{UserID: f.user.ID}

	for _, product := range model.ProductCategories {
		t.Run(string(product), func(t *testing.T) {
			body := fmt.Sprintf(`{"product":%q,"color":"#123456"}`, product)
			result, err := f.service.Save(ctx, actor, []byte(body))
			require.NoError(t, err)
			assert.NotZero(t, result.DesignID)
			assert.False(t, result.SessionSaved)
		})
	}

	invalid := []string{`"cap"`, `"TSHIRT"`, `""`, `42`, `{"x":1}`}
	for _, product := range invalid {
		t.Run("invalid "+product, func(t *testing.T) {
			before := countDesigns(t, f.db)

			_, err := f.service.Save(ctx, actor, []byte(`{"product":`+product+`}`))
			assert.ErrorIs(t, err, ErrInvalidProduct)

			_, err = f.service.Save(ctx, Actor{SessionKey: sessionKeyA}, []byte(`{"product":`+product+`}`))
			assert.ErrorIs(t, err, ErrInvalidProduct)

			assert.Equal(t, before, countDesigns(t, f.db))
		})
	}
}

func TestDesignService_Save_Defaults(t *testing.T) {
	f := setupDesignServiceTest(t, strictConfig())
	ctx := context.Background()
	actor := Actor{UserID: f.user.ID}

	body := `{
		"decals": [{"imageUrl": "/media/decals/cat.png", "position": {"x": 1}}],
		"texts": [{"content": "hi"}]
	}`
	result, err := f.service.Save(ctx, actor, []byte(body))
	require.NoError(t, err)

	var design model.Design
	require.NoError(t, f.db.Preload("Decals").Preload("Texts").First(&design, result.DesignID).Error)

	assert.Equal(t, model.CategoryTShirt, design.Product)
	assert.Equal(t, "#ffffff", design.Color)

	require.Len(t, design.Decals, 1)
	decal := design.Decals[0]
	assert.Equal(t, "decals/cat.png", decal.Image)
	assert.Equal(t, 1.0, decal.PosX)
	assert.Equal(t, 0.0, decal.PosY)
	assert.Equal(t, 0.0, decal.RotZ)
	assert.Equal(t, 0.5, decal.SizeX)
	assert.Equal(t, 0.5, decal.SizeZ)

	require.Len(t, design.Texts, 1)
	text := design.Texts[0]
	assert.Equal(t, "#000000", text.Color)
	assert.Equal(t, 1.0, text.ScaleX)
	assert.Equal(t, 0.0, text.PosX)
}

func TestDesignService_Save_ExplicitZeroSizeKept(t *testing.T) {
	f := setupDesignServiceTest(t, strictConfig())

	body := `{"decals":[{"imageUrl":"decals/a.png","size":{"x":0,"y":2,"z":0}}]}`
	result, err := f.service.Save(context.Background(), Actor{UserID: f.user.ID}, []byte(body))
	require.NoError(t, err)

	var decal model.DesignDecal
	require.NoError(t, f.db.Where("design_id = ?", result.DesignID).First(&decal).Error)
	assert.Equal(t, 0.0, decal.SizeX)
	assert.Equal(t, 2.0, decal.SizeY)
	assert.Equal(t, "decals/a.png", decal.Image)
}

func TestDesignService_Save_SkipsBadEntries(t *testing.T) {
	f := setupDesignServiceTest(t, strictConfig())

	long := string(bytes.Repeat([]byte("a"), model.MaxTextContent+1))
	body := fmt.Sprintf(`{
		"product": "hoodie",
		"decals": [
			{"imageUrl": ""},
			{"imageUrl": "decals/ok.png"},
			{"imageUrl": "decals/bad.png", "position": {"x": "left"}},
			"not an object"
		],
		"texts": [
			{"content": ""},
			{"content": %q},
			{"content": "bad color", "color": "red"},
			{"content": "kept", "color": "#abc"}
		]
	}`, long)

	result, err := f.service.Save(context.Background(), Actor{UserID: f.user.ID}, []byte(body))
	require.NoError(t, err)
	assert.Equal(t, 6, result.Skipped)

	var design model.Design
	require.NoError(t, f.db.Preload("Decals").Preload("Texts").First(&design, result.DesignID).Error)
	require.Len(t, design.Decals, 1)
	assert.Equal(t, "decals/ok.png", design.Decals[0].Image)
	require.Len(t, design.Texts, 1)
	assert.Equal(t, "kept", design.Texts[0].Content)
	assert.Equal(t, "#abc", design.Texts[0].Color)
}

func TestDesignService_Save_Color(t *testing.T) {
	ctx := context.Background()

	t.Run("Strict rejects non-hex", func(t *testing.T) {
		f := setupDesignServiceTest(t, strictConfig())
		for _, color := range []string{`"red"`, `"#12345"`, `"ffffff"`, `7`} {
			_, err := f.service.Save(ctx, Actor{UserID: f.user.ID}, []byte(`{"color":`+color+`}`))
			assert.ErrorIs(t, err, ErrInvalidColor, color)
		}
		assert.Zero(t, countDesigns(t, f.db))
	})

	t.Run("Lenient accepts any short string", func(t *testing.T) {
		f := setupDesignServiceTest(t, config.DesignConfig{StrictColor: false})
		result, err := f.service.Save(ctx, Actor{UserID: f.user.ID}, []byte(`{"color":"red"}`))
		require.NoError(t, err)

		var design model.Design
		require.NoError(t, f.db.First(&design, result.DesignID).Error)
		assert.Equal(t, "red", design.Color)
	})
}

func TestDesignService_Save_InvalidJSON(t *testing.T) {
	f := setupDesignServiceTest(t, strictConfig())
	ctx := context.Background()

	for _, body := range []string{``, `{`, `null`, `[1,2]`, `"tshirt"`, `{"decals": {}}`} {
		_, err := f.service.Save(ctx, Actor{UserID: f.user.ID}, []byte(body))
		assert.ErrorIs(t, err, ErrInvalidJSON, body)

		_, err = f.service.Save(ctx, Actor{SessionKey: sessionKeyA}, []byte(body))
		assert.ErrorIs(t, err, ErrInvalidJSON, body)
	}
}

func TestDesignService_Save_VerifyDecalFiles(t *testing.T) {
	f := setupDesignServiceTest(t, config.DesignConfig{StrictColor: true, VerifyDecalFiles: true})
	ctx := context.Background()

	_, err := f.files.Save(ctx, "decals/present.png", "image/png", bytes.NewReader([]byte("png")))
	require.NoError(t, err)

	body := `{"decals":[{"imageUrl":"/media/decals/present.png"},{"imageUrl":"/media/decals/missing.png"}]}`
	result, err := f.service.Save(ctx, Actor{UserID: f.user.ID}, []byte(body))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)

	var decals []model.DesignDecal
	require.NoError(t, f.db.Where("design_id = ?", result.DesignID).Find(&decals).Error)
	require.Len(t, decals, 1)
	assert.Equal(t, "decals/present.png", decals[0].Image)
}

func TestDesignService_Save_EveryCallCreatesDesign(t *testing.T) {
	f := setupDesignServiceTest(t, strictConfig())
	ctx := context.Background()
	actor := Actor{UserID: f.user.ID}

	first, err := f.service.Save(ctx, actor, []byte(`{"product":"tshirt"}`))
	require.NoError(t, err)
	second, err := f.service.Save(ctx, actor, []byte(`{"product":"tshirt"}`))
	require.NoError(t, err)

	assert.NotEqual(t, first.DesignID, second.DesignID)
	assert.Equal(t, int64(2), countDesigns(t, f.db))
}

func TestDesignService_RoundTrip(t *testing.T) {
	f := setupDesignServiceTest(t, strictConfig())
	ctx := context.Background()
	actor := Actor{UserID: f.user.ID}

	body := `{
		"product": "jumper",
		"color": "#0a0b0c",
		"decals": [
			{"imageUrl": "/media/decals/a.png", "position": {"x": 0.1, "y": 0.2, "z": 0.3}, "rotation": {"x": 0, "y": 1.57, "z": 0}, "size": {"x": 0.4, "y": 0.4, "z": 0.4}},
			{"imageUrl": "/media/decals/b.png"}
		],
		"texts": [{"content": "Hello", "color": "#ff0000", "scale": {"x": 2, "y": 2, "z": 1}}]
	}`
	saved, err := f.service.Save(ctx, actor, []byte(body))
	require.NoError(t, err)

	loaded, err := f.service.Load(ctx, actor)
	require.NoError(t, err)
	require.NotNil(t, loaded.View)
	view := loaded.View

	assert.Equal(t, saved.DesignID, view.ID)
	assert.Equal(t, model.CategoryJumper, view.Product)
	assert.Equal(t, "#0a0b0c", view.Color)
	require.Len(t, view.Decals, 2)
	require.Len(t, view.Texts, 1)

	assert.Equal(t, "/media/decals/a.png", view.Decals[0].ImageURL)
	assert.Equal(t, Vec3View{0.1, 0.2, 0.3}, view.Decals[0].Position)
	assert.Equal(t, 1.57, view.Decals[0].Rotation.Y)
	assert.Regexp(t, `^Decal \d+$`, view.Decals[0].Name)
	assert.Equal(t, Vec3View{2, 2, 1}, view.Texts[0].Scale)
	assert.Regexp(t, `^Text \d+$`, view.Texts[0].Name)

	encoded, err := json.Marshal(loaded)
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"imageUrl":"/media/decals/b.png"`)
}

func TestDesignService_Load_Latest(t *testing.T) {
	f := setupDesignServiceTest(t, strictConfig())
	ctx := context.Background()
	actor := Actor{UserID: f.user.ID}

	_, err := f.service.Save(ctx, actor, []byte(`{"product":"baggy"}`))
	require.NoError(t, err)
	latest, err := f.service.Save(ctx, actor, []byte(`{"product":"hoodie"}`))
	require.NoError(t, err)

	loaded, err := f.service.Load(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, latest.DesignID, loaded.View.ID)
	assert.Equal(t, model.CategoryHoodie, loaded.View.Product)
}

func TestDesignService_Load_NoDesign(t *testing.T) {
	f := setupDesignServiceTest(t, strictConfig())
	ctx := context.Background()

	_, err := f.service.Load(ctx, Actor{UserID: f.user.ID})
	assert.ErrorIs(t, err, ErrNoDesign)

	_, err = f.service.Load(ctx, Actor{SessionKey: sessionKeyA})
	assert.ErrorIs(t, err, ErrNoDesign)

	_, err = f.service.Load(ctx, Actor{})
	assert.ErrorIs(t, err, ErrNoDesign)
}

func TestDesignService_Anonymous(t *testing.T) {
	f := setupDesignServiceTest(t, strictConfig())
	ctx := context.Background()
	actor := Actor{SessionKey: sessionKeyA}

	body := `{"product":"hoodie","decals":[{"imageUrl":"/media/decals/missing.png","custom":"kept"}],"unknown":[1,2]}`
	result, err := f.service.Save(ctx, actor, []byte(body))
	require.NoError(t, err)
	assert.True(t, result.SessionSaved)
	assert.Zero(t, result.DesignID)
	assert.Zero(t, countDesigns(t, f.db))

	loaded, err := f.service.Load(ctx, actor)
	require.NoError(t, err)
	assert.Nil(t, loaded.View)
	assert.JSONEq(t, body, string(loaded.Raw))

	encoded, err := json.Marshal(loaded)
	require.NoError(t, err)
	assert.JSONEq(t, body, string(encoded))

	t.Run("Overwrites prior value", func(t *testing.T) {
		_, err := f.service.Save(ctx, actor, []byte(`{"product":"baggy"}`))
		require.NoError(t, err)

		loaded, err := f.service.Load(ctx, actor)
		require.NoError(t, err)
		assert.JSONEq(t, `{"product":"baggy"}`, string(loaded.Raw))
	})

	t.Run("Other sessions unaffected", func(t *testing.T) {
		_, err := f.service.Load(ctx, Actor{SessionKey: sessionKeyB})
		assert.ErrorIs(t, err, ErrNoDesign)
	})

	t.Run("Requires session key", func(t *testing.T) {
		_, err := f.service.Save(ctx, Actor{}, []byte(`{}`))
		assert.ErrorIs(t, err, ErrSessionRequired)
	})
}

func TestDesignService_S3DecalURLsRoundTrip(t *testing.T) {
	testDB := newTestDB(t)
	files := storage.NewS3Storage("eu-west-1", "tshirt-uploads", "key", "secret", "https://cdn.example.com")
	sessions := session.NewDBStore(repository.NewSessionRepository(testDB), time.Hour)
	svc := NewDesignService(repository.NewDesignRepository(testDB), sessions, files, strictConfig())
	user := createTestUser(t, testDB, "s3@example.com")
	ctx := context.Background()

	uploaded := files.URL("decals/cat_1a2b3c4d.png")
	require.Equal(t, "https://cdn.example.com/decals/cat_1a2b3c4d.png", uploaded)
	foreign := "https://elsewhere.example.org/logo.png"

	body := fmt.Sprintf(`{"decals":[{"imageUrl":%q},{"imageUrl":%q}]}`, uploaded, foreign)
	result, err := svc.Save(ctx, Actor{UserID: user.ID}, []byte(body))
	require.NoError(t, err)

	var stored []model.DesignDecal
	require.NoError(t, testDB.Where("design_id = ?", result.DesignID).Order("id").Find(&stored).Error)
	require.Len(t, stored, 2)
	assert.Equal(t, "decals/cat_1a2b3c4d.png", stored[0].Image)
	assert.Equal(t, foreign, stored[1].Image)

	loaded, err := svc.Load(ctx, Actor{UserID: user.ID})
	require.NoError(t, err)
	require.Len(t, loaded.View.Decals, 2)
	assert.Equal(t, uploaded, loaded.View.Decals[0].ImageURL)
	assert.Equal(t, foreign, loaded.View.Decals[1].ImageURL)
}
