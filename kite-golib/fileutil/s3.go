package fileutil

import (
	"io"
	"io/ioutil"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/kiteco/cc2ftr/kite-golib/errors"
)

func region() string {
	if r := os.Getenv("AWS_REGION"); r != "" {
		return r
	}
	return "us-west-1"
}

// IsS3URI returns true if the path is an s3 uri.
func IsS3URI(path string) bool {
	return strings.HasPrefix(path, "s3://")
}

// validateS3URI parses uri and checks that it points to S3.
func validateS3URI(uri string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", err
	}
	if u.Scheme != "s3" {
		return "", "", errors.Errorf("%s is not an s3 path", uri)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", errors.Errorf("%s must name a bucket and a key", uri)
	}
	return u.Host, key, nil
}

func newS3Client() (*s3.S3, error) {
	sess, err := session.NewSession()
	if err != nil {
		return nil, err
	}
	return s3.New(sess, aws.NewConfig().WithRegion(region())), nil
}

func newS3Reader(uri string) (io.ReadCloser, error) {
	bucket, key, err := validateS3URI(uri)
	if err != nil {
		return nil, err
	}
	client, err := newS3Client()
	if err != nil {
		return nil, err
	}
	out, err := client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "error reading %s", uri)
	}
	return out.Body, nil
}

// bufferedS3Writer writes to a temp file and uploads it on Close
type bufferedS3Writer struct {
	f           *os.File
	bucket, key string
}

func newBufferedS3Writer(uri string) (NamedWriteCloser, error) {
	bucket, key, err := validateS3URI(uri)
	if err != nil {
		return nil, err
	}
	f, err := ioutil.TempFile("", "s3buffer")
	if err != nil {
		return nil, err
	}
	return &bufferedS3Writer{f: f, bucket: bucket, key: key}, nil
}

func (w *bufferedS3Writer) Write(p []byte) (int, error) {
	return w.f.Write(p)
}

func (w *bufferedS3Writer) Name() string {
	return "s3://" + w.bucket + "/" + w.key
}

func (w *bufferedS3Writer) Close() (err error) {
	defer os.Remove(w.f.Name())
	defer errors.Defer(&err, w.f.Close)

	if _, err := w.f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	client, err := newS3Client()
	if err != nil {
		return err
	}
	_, err = client.PutObject(&s3.PutObjectInput{
		Bucket: aws.String(w.bucket),
		Key:    aws.String(w.key),
		Body:   w.f,
	})
	return errors.WrapfOrNil(err, "error uploading %s", w.Name())
}
