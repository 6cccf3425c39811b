package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

func runDownload(args []string) int {
	fs := flag.NewFlagSet("download", flag.ExitOnError)

	var (
		url       string
		outputDir string
	)
	fs.StringVar(&url, "url", "", "URL of a RefSeq/GENCODE-style FASTA file to cache locally")
	fs.StringVar(&outputDir, "output", "", "Output directory (default: ~/.hgvsd/cache)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Download a reference-sequence FASTA file for the 'hgvsd serve --fasta' resolver.

Usage:
  hgvsd download --url <fasta-url> [options]

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Example:
  hgvsd download --url https://ftp.ncbi.nlm.nih.gov/refseq/H_sapiens/RefSeqGene/refseqgene.fna.gz
`)
	}

	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	if url == "" {
		fmt.Fprintf(os.Stderr, "Error: --url is required\n\n")
		fs.Usage()
		return ExitUsage
	}

	if outputDir == "" {
		outputDir = defaultCacheDir()
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot create directory %s: %v\n", outputDir, err)
		return ExitError
	}

	destPath := filepath.Join(outputDir, filepath.Base(url))
	fmt.Printf("Downloading %s\n", url)
	fmt.Printf("Destination: %s\n", destPath)

	if err := downloadFile(url, destPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error downloading file: %v\n", err)
		return ExitError
	}

	fmt.Println("Download complete.")
	fmt.Printf("To use it: hgvsd serve --fasta %s\n", destPath)
	return ExitSuccess
}

// downloadFile downloads a file from url to destPath with progress,
// skipping the download entirely if destPath already exists.
func downloadFile(url, destPath string) error {
	if info, err := os.Stat(destPath); err == nil {
		fmt.Printf("  %s already exists (%s), skipping\n", filepath.Base(destPath), formatSize(info.Size()))
		return nil
	}

	client := &http.Client{Timeout: 30 * time.Minute}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: %s", resp.Status)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	var downloaded int64
	pw := &progressWriter{total: resp.ContentLength, downloaded: &downloaded, lastPrint: time.Now()}

	_, err = io.Copy(f, io.TeeReader(resp.Body, pw))
	f.Close()
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("download failed: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename file: %w", err)
	}

	fmt.Printf("    Done: %s\n", formatSize(downloaded))
	return nil
}

// progressWriter tracks download progress, printed at most once a second.
type progressWriter struct {
	total      int64
	downloaded *int64
	lastPrint  time.Time
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n := len(p)
	*pw.downloaded += int64(n)

	if time.Since(pw.lastPrint) > time.Second {
		if pw.total > 0 {
			pct := float64(*pw.downloaded) / float64(pw.total) * 100
			fmt.Printf("\r    Progress: %s / %s (%.1f%%)  ", formatSize(*pw.downloaded), formatSize(pw.total), pct)
		} else {
			fmt.Printf("\r    Progress: %s  ", formatSize(*pw.downloaded))
		}
		pw.lastPrint = time.Now()
	}
	return n, nil
}

// formatSize formats bytes as a human-readable size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
