package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// ItfS3 stores JPEG snapshots of anomalous frames as evidence.
type ItfS3 interface {
	UploadEvidence(ctx context.Context, key string, jpeg []byte) (string, error)
}

type s3Client struct {
	uploader   *s3manager.Uploader
	bucketName string
}

// New returns nil without error when EVIDENCE_BUCKET is unset.
func New() (ItfS3, error) {
	bucket := os.Getenv("EVIDENCE_BUCKET")
	if bucket == "" {
		return nil, nil
	}

	sess, err := newSession()
	if err != nil {
		return nil, err
	}

	return &s3Client{
		uploader:   s3manager.NewUploader(sess),
		bucketName: bucket,
	}, nil
}

func (s *s3Client) UploadEvidence(ctx context.Context, key string, jpeg []byte) (string, error) {
	if len(jpeg) == 0 {
		return "", errors.New("evidence image is empty")
	}

	uploadOutput, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(EvidenceKey(key, time.Now())),
		Body:        bytes.NewReader(jpeg),
		ContentType: aws.String("image/jpeg"),
	})
	if err != nil {
		return "", err
	}

	return uploadOutput.Location, nil
}

// EvidenceKey returns evidence/<UTC date>/<name>.jpg.
func EvidenceKey(name string, at time.Time) string {
	name = strings.Trim(strings.ReplaceAll(name, " ", "_"), "/")
	if name == "" {
		name = "frame"
	}
	if !strings.HasSuffix(name, ".jpg") {
		name += ".jpg"
	}
	return fmt.Sprintf("evidence/%s/%s", at.UTC().Format("2006-01-02"), name)
}

func newSession() (*session.Session, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(os.Getenv("AWS_REGION")),
		Credentials: credentials.NewStaticCredentials(
			os.Getenv("AWS_ACCESS_KEY_ID"),
			os.Getenv("AWS_SECRET_ACCESS_KEY"),
			"",
		),
	})

	if err != nil {
		return nil, err
	}

	return sess, nil
}
