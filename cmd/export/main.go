// Command export writes every saved design, with its decals and texts, to
// an XLSX workbook for review outside the app.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ikkim/tshirt-backend/config"
	"github.com/ikkim/tshirt-backend/internal/app/model"
	"github.com/ikkim/tshirt-backend/internal/app/repository"
	"github.com/ikkim/tshirt-backend/internal/db"
	"github.com/xuri/excelize/v2"
)

const (
	designsSheet = "Designs"
	decalsSheet  = "Decals"
	textsSheet   = "Texts"
)

func main() {
	outPath := "designs.xlsx"
	if len(os.Args) > 1 {
		outPath = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	designRepo := repository.NewDesignRepository(db.GetDB())

	designs, err := designRepo.FindAllWithParts(context.Background())
	if err != nil {
		log.Fatal("Failed to load designs:", err)
	}

	if err := writeDesignReport(designs, outPath); err != nil {
		log.Fatal("Failed to write report:", err)
	}

	fmt.Printf("Exported %d designs to %s\n", len(designs), outPath)
}

func writeDesignReport(designs []model.Design, outPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), designsSheet); err != nil {
		return err
	}
	for _, sheet := range []string{decalsSheet, textsSheet} {
		if _, err := f.NewSheet(sheet); err != nil {
			return err
		}
	}

	designRows := [][]interface{}{
		{"ID", "Owner", "Product", "Color", "Decals", "Texts", "Created At"},
	}
	decalRows := [][]interface{}{
		{"Design ID", "Name", "Image", "Pos X", "Pos Y", "Pos Z", "Rot X", "Rot Y", "Rot Z", "Size X", "Size Y", "Size Z"},
	}
	textRows := [][]interface{}{
		{"Design ID", "Name", "Content", "Color", "Pos X", "Pos Y", "Pos Z", "Rot X", "Rot Y", "Rot Z", "Scale X", "Scale Y", "Scale Z"},
	}

	for _, d := range designs {
		designRows = append(designRows, []interface{}{
			d.ID, ownerLabel(d), string(d.Product), d.Color, len(d.Decals), len(d.Texts),
			d.CreatedAt.UTC().Format(time.RFC3339),
		})
		for _, decal := range d.Decals {
			decalRows = append(decalRows, []interface{}{
				d.ID, fmt.Sprintf("Decal %d", decal.ID), decal.Image,
				decal.PosX, decal.PosY, decal.PosZ,
				decal.RotX, decal.RotY, decal.RotZ,
				decal.SizeX, decal.SizeY, decal.SizeZ,
			})
		}
		for _, text := range d.Texts {
			textRows = append(textRows, []interface{}{
				d.ID, fmt.Sprintf("Text %d", text.ID), text.Content, text.Color,
				text.PosX, text.PosY, text.PosZ,
				text.RotX, text.RotY, text.RotZ,
				text.ScaleX, text.ScaleY, text.ScaleZ,
			})
		}
	}

	for sheet, rows := range map[string][][]interface{}{
		designsSheet: designRows,
		decalsSheet:  decalRows,
		textsSheet:   textRows,
	} {
		if err := writeRows(f, sheet, rows); err != nil {
			return fmt.Errorf("write %s sheet: %w", sheet, err)
		}
	}

	return f.SaveAs(outPath)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return err
		}
	}
	return nil
}

func ownerLabel(d model.Design) string {
	switch {
	case d.User != nil:
		return d.User.Email
	case d.UserID != nil:
		return fmt.Sprintf("user #%d", *d.UserID)
	default:
		return "anonymous"
	}
}
