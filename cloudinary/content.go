package cloudinary

import (
	"bytes"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/t2bot/image-backup-proxy/common"
	"github.com/t2bot/image-backup-proxy/common/rcontext"
	"github.com/t2bot/image-backup-proxy/metrics"
)

// DownloadContent fetches the raw bytes behind a delivery URL. A maxBytes of
// zero or less means no limit.
func (c *Client) DownloadContent(ctx rcontext.RequestContext, contentUrl string, maxBytes int64) ([]byte, error) {
	if contentUrl == "" {
		return nil, common.ErrNoContentUrl
	}

	var data []byte
	err := c.doBreakerCall(ctx, contentUrl, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, contentUrl, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", userAgent)

		res, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer res.Body.Close()

		if res.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(io.LimitReader(res.Body, 512))
			return newApiError(res.StatusCode, b)
		}

		var r io.Reader = res.Body
		if maxBytes > 0 {
			r = io.LimitReader(res.Body, maxBytes+1)
		}
		buf := &bytes.Buffer{}
		if _, err = io.Copy(buf, r); err != nil {
			return err
		}
		if maxBytes > 0 && int64(buf.Len()) > maxBytes {
			return common.ErrAssetTooLarge
		}
		data = buf.Bytes()
		return nil
	})

	metrics.RemoteApiCalls.With(prometheus.Labels{"operation": "download_content", "result": metrics.CallResult(err)}).Inc()
	if err != nil {
		return nil, errors.Wrapf(err, "GET %s", redactedUrl(contentUrl))
	}
	return data, nil
}
