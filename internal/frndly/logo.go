package frndly

import (
	"fmt"
	"strings"
)

// LogoURL decomposes an upstream "bucket,path" logo reference into a CDN
// URL at the requested square size. Malformed references yield "".
func (c *Client) LogoURL(ref string, size int) string {
	bucket, path, ok := strings.Cut(ref, ",")
	if !ok || bucket == "" || path == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/%d/%d/content/%s/logos/%s",
		c.logoBase, c.creds.TenantCode, size, size, bucket, path)
}
