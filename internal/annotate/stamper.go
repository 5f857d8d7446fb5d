package annotate

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/akvl/barstamp/internal/config"
)

// Stamper writes an annotated copy of a document, leaving the input untouched.
type Stamper interface {
	// StampText writes a copy of inPath to outPath with text stamped on the first page.
	StampText(inPath, outPath, text string) error
	// StampImage writes a copy of inPath to outPath with the image stamped on the first page.
	StampImage(inPath, outPath string, image []byte) error
}

// PDFStamper stamps PDF first pages with pdfcpu.
type PDFStamper struct {
	cfg config.StampConfig
}

// NewPDFStamper creates a stamper with the given placement settings.
func NewPDFStamper(cfg config.StampConfig) *PDFStamper {
	return &PDFStamper{cfg: cfg}
}

// Only the first page carries the stamp; the rest of the document is copied as is.
var firstPage = []string{"1"}

func (s *PDFStamper) StampText(inPath, outPath, text string) error {
	height, err := firstPageHeight(inPath)
	if err != nil {
		return fmt.Errorf("page dimensions: %w", err)
	}
	wm, err := api.TextWatermark(text, textDesc(s.cfg, height), true, false, types.POINTS)
	if err != nil {
		return fmt.Errorf("build text stamp: %w", err)
	}
	if err := api.AddWatermarksFile(inPath, outPath, firstPage, wm, relaxedConf()); err != nil {
		return fmt.Errorf("stamp %s: %w", inPath, err)
	}
	return nil
}

func (s *PDFStamper) StampImage(inPath, outPath string, image []byte) error {
	wm, err := api.ImageWatermarkForReader(bytes.NewReader(image), imageDesc(s.cfg), true, false, types.POINTS)
	if err != nil {
		return fmt.Errorf("build image stamp: %w", err)
	}
	if err := api.AddWatermarksFile(inPath, outPath, firstPage, wm, relaxedConf()); err != nil {
		return fmt.Errorf("stamp %s: %w", inPath, err)
	}
	return nil
}

// textDesc renders the pdfcpu description for a text stamp on a page of the
// given height in points. The font size approximates a box pageHeight/HeightFactor
// tall; the position and offset keep the stamp inside the page margin.
func textDesc(cfg config.StampConfig, pageHeight float64) string {
	points := int(pageHeight / heightFactor(cfg))
	if points < 6 {
		points = 6
	}
	return fmt.Sprintf("pos:%s, off:-10 -10, rot:0, fontname:Courier, points:%d, fillcolor:#000000", position(cfg), points)
}

// imageDesc renders the pdfcpu description for an image stamp. The image is
// scaled to pageWidth/WidthFactor; pdfcpu keeps the aspect ratio.
func imageDesc(cfg config.StampConfig) string {
	return fmt.Sprintf("pos:%s, off:-10 -10, rot:0, scale:%.3f rel", position(cfg), 1/widthFactor(cfg))
}

func position(cfg config.StampConfig) string {
	if cfg.Position == "" {
		return "tr"
	}
	return cfg.Position
}

func widthFactor(cfg config.StampConfig) float64 {
	if cfg.WidthFactor <= 0 {
		return 5
	}
	return cfg.WidthFactor
}

func heightFactor(cfg config.StampConfig) float64 {
	if cfg.HeightFactor <= 0 {
		return 20
	}
	return cfg.HeightFactor
}

func firstPageHeight(path string) (float64, error) {
	dims, err := api.PageDimsFile(path)
	if err != nil {
		return 0, err
	}
	if len(dims) == 0 {
		return 0, fmt.Errorf("no pages in %s", path)
	}
	return dims[0].Height, nil
}

func relaxedConf() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}
