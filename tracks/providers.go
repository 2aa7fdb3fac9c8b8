// tracks/providers.go
// Copyright(c) 2022-2025 tracknet contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package tracks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmp/tracknet/log"
	"github.com/mmp/tracknet/util"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"google.golang.org/api/option"
)

// Messages larger than this are assumed to be garbage.
const maxMessageBytes = 4 << 20

func readMessage(r io.Reader) (string, error) {
	b, err := io.ReadAll(io.LimitReader(r, maxMessageBytes+1))
	if err != nil {
		return "", err
	} else if len(b) > maxMessageBytes {
		return "", fmt.Errorf("track message exceeds %d bytes", maxMessageBytes)
	}
	return string(b), nil
}

///////////////////////////////////////////////////////////////////////////
// StaticProvider

// StaticProvider returns a message that is already in hand.
type StaticProvider struct {
	Message *Message
}

func (p StaticProvider) GetMessage(ctx context.Context) (*Message, error) {
	if p.Message == nil {
		return nil, ErrNoMessage
	}
	return p.Message, nil
}

///////////////////////////////////////////////////////////////////////////
// FileProvider

// FileProvider imports a message from a local file, which may be
// zstd-compressed.
type FileProvider struct {
	Type     TrackType
	Filename string
}

func (p FileProvider) GetMessage(ctx context.Context) (*Message, error) {
	r, err := util.OpenMaybeCompressed(p.Filename)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	text, err := readMessage(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.Filename, err)
	}
	return &Message{Type: p.Type, Text: text, Origin: Imported, Time: time.Now()}, nil
}

///////////////////////////////////////////////////////////////////////////
// HTTPProvider

type HTTPProvider struct {
	Type    TrackType
	URL     string
	Timeout time.Duration // zero means 30s
	Client  *http.Client  // optional
}

func (p HTTPProvider) GetMessage(ctx context.Context) (*Message, error) {
	timeout := p.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", p.URL, nil)
	if err != nil {
		return nil, err
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %s", p.URL, resp.Status)
	}

	text, err := readMessage(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.URL, err)
	}
	return &Message{Type: p.Type, Text: text, Origin: Downloaded, Time: time.Now()}, nil
}

///////////////////////////////////////////////////////////////////////////
// GCSProvider

// GCSProvider reads the message from an object in a Google Cloud Storage
// bucket. Without credentials, the bucket must be publicly readable.
type GCSProvider struct {
	Type            TrackType
	Bucket          string
	Object          string
	CredentialsJSON string
	Timeout         time.Duration
}

// readerWithCancel ensures that the context used for the read is
// canceled once the reader is closed.
type readerWithCancel struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *readerWithCancel) Close() error {
	err := r.ReadCloser.Close()
	r.cancel()
	return err
}

func (p GCSProvider) newReader(ctx context.Context) (io.ReadCloser, error) {
	var opts []option.ClientOption
	if p.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(p.CredentialsJSON)))
	} else {
		opts = append(opts, option.WithoutAuthentication())
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}

	timeout := p.Timeout
	if timeout == 0 {
		timeout = time.Minute
	}
	readCtx, cancel := context.WithTimeout(ctx, timeout)

	r, err := client.Bucket(p.Bucket).Object(p.Object).NewReader(readCtx)
	if err != nil {
		cancel()
		client.Close()
		return nil, fmt.Errorf("gs://%s/%s: %w", p.Bucket, p.Object, err)
	}
	return &readerWithCancel{ReadCloser: r, cancel: func() { cancel(); client.Close() }}, nil
}

func (p GCSProvider) GetMessage(ctx context.Context) (*Message, error) {
	r, err := p.newReader(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	text, err := readMessage(r)
	if err != nil {
		return nil, fmt.Errorf("gs://%s/%s: %w", p.Bucket, p.Object, err)
	}
	return &Message{Type: p.Type, Text: text, Origin: Downloaded, Time: time.Now()}, nil
}

///////////////////////////////////////////////////////////////////////////
// S3Provider

// S3Provider reads the message from an S3 (or S3-compatible) object. If
// no access key is given, the default AWS credential chain is used.
type S3Provider struct {
	Type      TrackType
	Bucket    string
	Key       string
	Region    string
	Endpoint  string // optional, for S3-compatible services
	AccessKey string
	SecretKey string
}

func (p S3Provider) GetMessage(ctx context.Context) (*Message, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if p.Region != "" {
		opts = append(opts, awsconfig.WithRegion(p.Region))
	}
	if p.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(p.AccessKey, p.SecretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if p.Endpoint != "" {
			o.BaseEndpoint = aws.String(p.Endpoint)
			o.UsePathStyle = true
		}
	})

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.Bucket),
		Key:    aws.String(p.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3://%s/%s: %w", p.Bucket, p.Key, err)
	}
	defer out.Body.Close()

	text, err := readMessage(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3://%s/%s: %w", p.Bucket, p.Key, err)
	}
	return &Message{Type: p.Type, Text: text, Origin: Downloaded, Time: time.Now()}, nil
}

///////////////////////////////////////////////////////////////////////////
// CachingProvider

// CachingProvider stores each message successfully returned by Provider
// in the local cache. If Provider fails and Fallback is set, the most
// recent cached message is returned instead, as long as it is no older
// than MaxAge (if non-zero).
type CachingProvider struct {
	Provider MessageProvider
	Type     TrackType
	Fallback bool
	MaxAge   time.Duration
	Logger   *log.Logger
}

func (p CachingProvider) cachePath() string {
	return "tracks/" + p.Type.EntryPrefix() + ".msgpack.zst"
}

func (p CachingProvider) GetMessage(ctx context.Context) (*Message, error) {
	msg, err := p.Provider.GetMessage(ctx)
	if err == nil {
		if cerr := util.CacheStoreObject(p.cachePath(), msg); cerr != nil {
			p.Logger.Warn("unable to cache track message", slog.String("type", p.Type.String()),
				slog.Any("error", cerr))
		}
		return msg, nil
	}
	if !p.Fallback || errors.Is(err, context.Canceled) {
		return nil, err
	}

	var cached Message
	t, cerr := util.CacheRetrieveObject(p.cachePath(), &cached)
	if cerr != nil {
		return nil, err
	}
	if p.MaxAge != 0 && time.Since(t) > p.MaxAge {
		p.Logger.Info("cached track message too old", slog.String("type", p.Type.String()),
			slog.Duration("age", time.Since(t)))
		return nil, err
	}

	p.Logger.Warn("using cached track message", slog.String("type", p.Type.String()),
		slog.Any("error", err))
	cached.Origin = Cached
	return &cached, nil
}
