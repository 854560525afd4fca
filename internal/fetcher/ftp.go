package fetcher

import (
	"context"
	"net"
	"net/url"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FTPOptions configures the FTP fetcher.
type FTPOptions struct {
	Timeout      time.Duration // default 30s
	MaxBodyBytes int64         // default 2 MiB
}

// FTPFetcher downloads feed files over FTP.
type FTPFetcher struct {
	opts FTPOptions
}

// NewFTPFetcher creates an FTPFetcher with the given options.
func NewFTPFetcher(opts FTPOptions) *FTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxBodyBytes == 0 {
		opts.MaxBodyBytes = 2 << 20
	}
	return &FTPFetcher{opts: opts}
}

// parseFTPURL extracts host (with port) and path from an FTP URL.
func parseFTPURL(rawURL string) (host string, path string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", eris.Wrap(err, "parse ftp url")
	}
	if u.Scheme != "ftp" {
		return "", "", eris.Errorf("expected ftp scheme, got %q", u.Scheme)
	}

	host = u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "21")
	}

	path = u.Path
	if path == "" {
		return "", "", eris.New("empty path in ftp url")
	}

	return host, path, nil
}

// Fetch downloads the file at an ftp:// URL. Feeds published over FTP
// allow anonymous login only.
func (f *FTPFetcher) Fetch(ctx context.Context, ftpURL string) ([]byte, error) {
	host, path, err := parseFTPURL(ftpURL)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("ftp: connecting", zap.String("host", host), zap.String("path", path))

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(f.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "ftp dial")
	}
	defer conn.Quit() //nolint:errcheck

	if err := conn.Login("anonymous", "anonymous@"); err != nil {
		return nil, eris.Wrap(err, "ftp login")
	}

	resp, err := conn.Retr(path)
	if err != nil {
		return nil, eris.Wrap(err, "ftp retrieve")
	}

	data, readErr := readCapped(resp, f.opts.MaxBodyBytes)
	closeErr := resp.Close()
	if readErr != nil {
		return nil, eris.Wrap(readErr, "ftp read")
	}
	if closeErr != nil {
		return nil, eris.Wrap(closeErr, "close ftp response")
	}
	return data, nil
}
