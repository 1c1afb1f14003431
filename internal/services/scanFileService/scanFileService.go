package scanfileservice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/RobsonDevCode/metascan/internal/clients"
	"github.com/RobsonDevCode/metascan/internal/clients/models"
	tablewriterservice "github.com/RobsonDevCode/metascan/internal/cmdLineWriters/tablewriter"
	"github.com/RobsonDevCode/metascan/internal/constants/exportOptions"
	scannerService "github.com/RobsonDevCode/metascan/internal/scanner"
	excelexportservice "github.com/RobsonDevCode/metascan/internal/services/excelExportService"
	hashservice "github.com/RobsonDevCode/metascan/internal/services/hashService"
	"github.com/fatih/color"
)

const (
	ExportNever  = "never"
	ExportAlways = "always"
	ExportAsk    = "ask"
)

// ErrScanTimeout is returned once a timed out scan has been reported.
var ErrScanTimeout = errors.New("scan did not complete in time")

type ScanFileService interface {
	ScanFile(ctx context.Context, filePath string, request ScanRequest) (*models.ScanResult, error)
	LookupDigest(ctx context.Context, digest string, request ScanRequest) (*models.ScanResult, error)
}

type ScanRequest struct {
	Rescan    bool
	Confirm   bool
	Export    string
	ExportDir string
}

type FileProcessor struct {
	scanner scannerService.ScannerService
	out     io.Writer
	// prompts are swapped out in tests
	confirmUpload func(path string, digest string) (bool, error)
	selectExport  func() (string, error)
}

func NewFileScannerService(scanner scannerService.ScannerService, out io.Writer) *FileProcessor {
	return &FileProcessor{
		scanner:       scanner,
		out:           out,
		confirmUpload: confirmUpload,
		selectExport:  excelexportservice.SelectExportScanResult,
	}
}

func (f *FileProcessor) ScanFile(ctx context.Context, filePath string, request ScanRequest) (*models.ScanResult, error) {
	fmt.Fprintf(f.out, "%s file = %s\n", color.BlueString("INFO:"), color.CyanString("%s", filePath))

	options := scannerService.ScanOptions{Rescan: request.Rescan}
	if request.Confirm {
		options.Confirm = f.confirmUpload
	}

	outcome, err := f.scanner.ScanFile(ctx, filePath, options)
	if err != nil {
		return nil, err
	}

	return f.present(outcome, request)
}

func (f *FileProcessor) LookupDigest(ctx context.Context, digest string, request ScanRequest) (*models.ScanResult, error) {
	outcome, err := f.scanner.LookupDigest(ctx, digest)
	if err != nil {
		return nil, err
	}

	return f.present(outcome, request)
}

func (f *FileProcessor) present(outcome models.Outcome, request ScanRequest) (*models.ScanResult, error) {
	switch o := outcome.(type) {
	case models.Found:
		if err := tablewriterservice.DisplayScanResult(f.out, o.Result); err != nil {
			return nil, err
		}
		if err := f.export(o.Result, request); err != nil {
			return o.Result, err
		}
		return o.Result, nil
	case models.NotFound:
		fmt.Fprintf(f.out, "%s Metadefender does not have a record of %s\n", color.BlueString("INFO:"), o.Digest)
		return nil, nil
	case models.Timeout:
		tablewriterservice.DisplayTimeout(f.out, o)
		return nil, ErrScanTimeout
	default:
		return nil, fmt.Errorf("unexpected scan outcome %T", outcome)
	}
}

func (f *FileProcessor) export(result *models.ScanResult, request ScanRequest) error {
	switch request.Export {
	case "", ExportNever:
		return nil
	case ExportAsk:
		choice, err := f.selectExport()
		if err != nil {
			return err
		}
		if choice != exportOptions.Yes {
			return nil
		}
	case ExportAlways:
	default:
		return fmt.Errorf("unknown export option %q", request.Export)
	}

	dir := request.ExportDir
	if dir == "" {
		dir = excelexportservice.DefaultExportDir
	}

	path, err := excelexportservice.ExportScanResult(result, dir, time.Now())
	if err != nil {
		return err
	}

	fmt.Fprintf(f.out, "Your file has been saved to: %s\n", path)
	return nil
}

// ReportError prints the user-facing message for a failed scan of path.
func ReportError(w io.Writer, path string, err error) {
	var clientErr *clients.Error

	switch {
	case errors.Is(err, ErrScanTimeout):
		// already reported with its details
	case errors.Is(err, scannerService.ErrUploadDeclined):
		fmt.Fprintf(w, "%s Upload of %s skipped\n", color.BlueString("INFO:"), filepath.Base(path))
		return
	case errors.Is(err, hashservice.ErrFileNotFound):
		fmt.Fprintf(w, "%s\n", color.RedString("ERROR: %s does not exist", path))
		return
	case clients.IsConnectionError(err):
		fmt.Fprintf(w, "%s\n", color.RedString("ERROR: Check your network connection"))
	case clients.IsTimeoutError(err):
		fmt.Fprintf(w, "%s\n", color.RedString("ERROR: Request to Metadefender timed out"))
	case errors.As(err, &clientErr):
		fmt.Fprintf(w, "%s\n", color.RedString("ERROR: %s", clientErr.Message))
	default:
		fmt.Fprintf(w, "%s\n", color.RedString("ERROR: %s", err.Error()))
	}

	fmt.Fprintf(w, "%s\n", color.RedString("ERROR: Failed to scan the file"))
}

func confirmUpload(path string, digest string) (bool, error) {
	prompt := &survey.Confirm{
		Message: fmt.Sprintf("Upload %s (%s) to Metadefender for scanning?", filepath.Base(path), digest[:12]),
		Default: true,
	}

	var upload bool
	if err := survey.AskOne(prompt, &upload); err != nil {
		return false, fmt.Errorf("confirmation cancelled: %w", err)
	}

	return upload, nil
}
