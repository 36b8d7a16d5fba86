package content

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/keithlinneman/viteguide-web/internal/cryptoutil"
	"github.com/keithlinneman/viteguide-web/internal/log"
	"github.com/keithlinneman/viteguide-web/internal/xerrors"
)

// maxSignatureSize bounds the detached .sig object.
const maxSignatureSize int64 = 16 << 10

// SSMAPI is the SSM call the loader makes.
type SSMAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// S3API is the S3 call the loader makes.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// SignatureVerifier checks a detached signature over the raw bundle bytes.
// *cryptoutil.KMSVerifier satisfies it.
type SignatureVerifier interface {
	VerifySignature(ctx context.Context, message, signature []byte) error
}

type LoaderOptions struct {
	Logger log.Logger

	// SSMParam holds the active bundle digest, "sha256:<hex>" or bare hex.
	SSMParam string

	// Bundles live at s3://{S3Bucket}/{S3Prefix}/{hash}.tar.gz with an
	// optional detached signature at the same key plus ".sig".
	S3Bucket string
	S3Prefix string

	// Verifier, when set, makes the signature mandatory.
	Verifier SignatureVerifier

	// Clients default to ones built from AWSConfig, or the default chain.
	SSMClient SSMAPI
	S3Client  S3API
	AWSConfig *aws.Config
}

type Loader struct {
	opts   LoaderOptions
	ssm    SSMAPI
	s3     S3API
	logger log.Logger
}

func NewLoader(ctx context.Context, opts LoaderOptions) (*Loader, error) {
	if opts.SSMParam == "" {
		return nil, xerrors.New("SSMParam is required")
	}
	if opts.S3Bucket == "" {
		return nil, xerrors.New("S3Bucket is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}

	l := &Loader{opts: opts, ssm: opts.SSMClient, s3: opts.S3Client, logger: opts.Logger}
	if l.ssm != nil && l.s3 != nil {
		return l, nil
	}

	awsCfg := aws.Config{}
	if opts.AWSConfig != nil {
		awsCfg = *opts.AWSConfig
	} else {
		var err error
		if awsCfg, err = config.LoadDefaultConfig(ctx); err != nil {
			return nil, xerrors.Wrap(err, "load AWS config")
		}
	}
	if l.ssm == nil {
		l.ssm = ssm.NewFromConfig(awsCfg)
	}
	if l.s3 == nil {
		l.s3 = s3.NewFromConfig(awsCfg)
	}
	return l, nil
}

// ParseDigest splits an SSM value into algorithm and lowercase hex digest.
// Only sha256 is accepted.
func ParseDigest(v string) (algorithm, hash string, err error) {
	v = strings.TrimSpace(v)
	algorithm, hash, found := strings.Cut(v, ":")
	if !found {
		algorithm, hash = "sha256", v
	}
	algorithm = strings.ToLower(algorithm)
	hash = strings.ToLower(hash)
	if algorithm != "sha256" {
		return "", "", xerrors.Newf("unsupported digest algorithm %q", algorithm)
	}
	if !cryptoutil.ValidSHA256Hex(hash) {
		return "", "", xerrors.Newf("malformed sha256 digest %q", hash)
	}
	return algorithm, hash, nil
}

// FetchCurrentBundleHash reads the active digest from SSM.
func (l *Loader) FetchCurrentBundleHash(ctx context.Context) (string, string, error) {
	out, err := l.ssm.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(l.opts.SSMParam),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", "", xerrors.Wrapf(err, "get SSM parameter %s", l.opts.SSMParam)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", "", xerrors.Newf("SSM parameter %s has no value", l.opts.SSMParam)
	}
	algorithm, hash, err := ParseDigest(*out.Parameter.Value)
	if err != nil {
		return "", "", xerrors.Wrapf(err, "SSM parameter %s", l.opts.SSMParam)
	}
	return algorithm, hash, nil
}

func (l *Loader) s3Key(hash string) string {
	if p := strings.Trim(l.opts.S3Prefix, "/"); p != "" {
		return fmt.Sprintf("%s/%s.tar.gz", p, hash)
	}
	return hash + ".tar.gz"
}

// getObject reads an S3 object up to limit bytes, returning it with its SHA-256.
func (l *Loader) getObject(ctx context.Context, key string, limit int64) ([]byte, string, error) {
	out, err := l.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.opts.S3Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", xerrors.Wrapf(err, "get s3://%s/%s", l.opts.S3Bucket, key)
	}
	defer out.Body.Close()

	data, sum, err := readWithHash(out.Body, limit)
	if err != nil {
		return nil, "", xerrors.Wrapf(err, "read s3://%s/%s", l.opts.S3Bucket, key)
	}
	return data, sum, nil
}

// Load fetches whatever bundle SSM currently names.
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	algorithm, hash, err := l.FetchCurrentBundleHash(ctx)
	if err != nil {
		return nil, err
	}
	return l.LoadHash(ctx, algorithm, hash)
}

// LoadHash downloads, verifies, and extracts the bundle with the given digest.
func (l *Loader) LoadHash(ctx context.Context, algorithm, hash string) (*Snapshot, error) {
	if algorithm != "sha256" {
		return nil, xerrors.Newf("unsupported digest algorithm %q", algorithm)
	}
	loadedAt := time.Now().UTC()
	key := l.s3Key(hash)

	l.logger.Info(ctx, "downloading article bundle", "bucket", l.opts.S3Bucket, "key", key)

	data, actual, err := l.getObject(ctx, key, maxBundleSize)
	if err != nil {
		return nil, err
	}
	if !cryptoutil.HashEqual(actual, hash) {
		return nil, xerrors.Newf("checksum mismatch for %s: expected %s, got %s", key, hash, actual)
	}

	signed := false
	if l.opts.Verifier != nil {
		sig, _, err := l.getObject(ctx, key+".sig", maxSignatureSize)
		if err != nil {
			return nil, xerrors.Wrap(err, "fetch bundle signature")
		}
		if err := l.opts.Verifier.VerifySignature(ctx, data, sig); err != nil {
			return nil, xerrors.Wrapf(err, "verify signature for %s", key)
		}
		signed = true
	}

	fsys, err := extractTarGzToMem(data)
	if err != nil {
		return nil, xerrors.Wrapf(err, "extract %s", key)
	}

	snap := newSnapshot(fsys, hash, SourceS3)
	snap.LoadedAt = loadedAt
	snap.Meta.Signed = signed
	if v, ok := l.opts.Verifier.(interface{ KeyARN() string }); ok && signed {
		snap.Meta.SigningKey = v.KeyARN()
	}

	articles := 0
	if snap.Manifest != nil {
		articles = len(snap.Manifest.Articles)
	}
	l.logger.Info(ctx, "loaded article bundle",
		"hash", truncHash(hash),
		"bytes", len(data),
		"signed", signed,
		"version", snap.Meta.Version,
		"manifest_articles", articles,
	)
	return snap, nil
}

// LoadIntoManager loads the current bundle, validates it, and publishes it.
func (l *Loader) LoadIntoManager(ctx context.Context, mgr *Manager, opts ValidationOptions) error {
	snap, err := l.Load(ctx)
	if err != nil {
		return err
	}
	if err := ValidateSnapshot(snap, opts); err != nil {
		return err
	}
	mgr.Set(*snap)
	return nil
}
