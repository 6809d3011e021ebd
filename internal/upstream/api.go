package upstream

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/utafrali/adminconsole/internal/domain"
	apperrors "github.com/utafrali/adminconsole/pkg/errors"
	"github.com/utafrali/adminconsole/pkg/pagination"
)

// Resource path segments on the commerce backend.
const (
	ResourceOrders     = "orders"
	ResourceProducts   = "products"
	ResourceCategories = "categories"
	ResourceVariants   = "variants"
	ResourceOffers     = "offers"
	ResourceCustomers  = "customers"
	ResourceReviews    = "reviews"
	ResourceContacts   = "contacts"
)

// Ping reports whether the commerce backend is reachable. Any HTTP response
// counts: a 404 from the root path still proves the backend is up.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL.String(), nil)
	if err != nil {
		return fmt.Errorf("create ping request: %w", err)
	}
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("ping commerce backend: %w", err)
	}
	resp.Body.Close()
	return nil
}

// Login submits the admin's credentials. On success the backend answers with
// an opaque challenge handle correlating the password with the OTP that
// follows; no tokens are issued yet.
func (c *Client) Login(ctx context.Context, email, password string) (challengeID string, err error) {
	var out struct {
		SessionID string `json:"session_id"`
	}
	payload := map[string]string{"email": email, "password": password}
	if err := c.sendJSON(ctx, "", http.MethodPost, "/adminlogin/", payload, &out); err != nil {
		return "", err
	}
	if out.SessionID == "" {
		return "", apperrors.Internal(fmt.Errorf("login response carried no session_id"))
	}
	return out.SessionID, nil
}

// VerifyOTP exchanges the challenge handle and one-time code for the
// credential pair.
func (c *Client) VerifyOTP(ctx context.Context, challengeID, otp string) (domain.CredentialPair, error) {
	var pair domain.CredentialPair
	payload := map[string]string{"session_id": challengeID, "otp": otp}
	if err := c.sendJSON(ctx, "", http.MethodPost, "/verifyloginotp/", payload, &pair); err != nil {
		return domain.CredentialPair{}, err
	}
	if !pair.Complete() {
		return domain.CredentialPair{}, apperrors.Internal(fmt.Errorf("verify response carried an incomplete credential pair"))
	}
	return pair, nil
}

// ResendOTP asks the backend to email a fresh one-time code for an
// in-flight login challenge.
func (c *Client) ResendOTP(ctx context.Context, challengeID string) error {
	payload := map[string]string{"session_id": challengeID}
	return c.sendJSON(ctx, "", http.MethodPost, "/resendloginotp/", payload, nil)
}

// Logout tells the backend to invalidate the refresh token. Best effort: the
// caller clears the local session regardless of the outcome.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	payload := map[string]string{"refresh": refreshToken}
	return c.sendJSON(ctx, "", http.MethodPost, "/logout/", payload, nil)
}

// List fetches one page of a resource collection. filters carries
// resource-specific narrowing (e.g. product=<id> for variants) on top of the
// shared page/search/ordering parameters.
func (c *Client) List(ctx context.Context, sid, resource string, params pagination.Params, filters url.Values) (ListPage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(params.Page))
	query.Set("page_size", strconv.Itoa(params.PerPage))
	if params.Search != "" {
		query.Set("search", params.Search)
	}
	if params.Ordering != "" {
		query.Set("ordering", params.Ordering)
	}
	for key, values := range filters {
		for _, v := range values {
			query.Add(key, v)
		}
	}

	resp, err := c.Request(ctx, sid, http.MethodGet, "/"+resource+"/", query, "", nil)
	if err != nil {
		return ListPage{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	return DecodeList(resp.Body)
}

// ListAll fetches a whole (or search-scoped) collection without pagination
// parameters. Client-paginated resources and the order search mode use this.
func (c *Client) ListAll(ctx context.Context, sid, resource, search string, filters url.Values) (ListPage, error) {
	query := url.Values{}
	if search != "" {
		query.Set("search", search)
	}
	for key, values := range filters {
		for _, v := range values {
			query.Add(key, v)
		}
	}

	resp, err := c.Request(ctx, sid, http.MethodGet, "/"+resource+"/", query, "", nil)
	if err != nil {
		return ListPage{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	return DecodeList(resp.Body)
}

// Get fetches a single resource row into out.
func (c *Client) Get(ctx context.Context, sid, resource, id string, out any) error {
	return c.getJSON(ctx, sid, "/"+resource+"/"+id+"/", nil, out)
}

// Create posts a new resource row. payload is sent as JSON.
func (c *Client) Create(ctx context.Context, sid, resource string, payload, out any) error {
	return c.sendJSON(ctx, sid, http.MethodPost, "/"+resource+"/", payload, out)
}

// Update replaces a resource row. payload is sent as JSON.
func (c *Client) Update(ctx context.Context, sid, resource, id string, payload, out any) error {
	return c.sendJSON(ctx, sid, http.MethodPut, "/"+resource+"/"+id+"/", payload, out)
}

// Delete removes a resource row.
func (c *Client) Delete(ctx context.Context, sid, resource, id string) error {
	resp, err := c.Request(ctx, sid, http.MethodDelete, "/"+resource+"/"+id+"/", nil, "", nil)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// CreateMultipart posts a new resource row as multipart/form-data. fields are
// plain form values; files maps field names to attachment content. Product
// and category creation use this when an image is attached.
func (c *Client) CreateMultipart(ctx context.Context, sid, resource string, fields map[string]string, files map[string]FileAttachment, out any) error {
	return c.sendMultipart(ctx, sid, http.MethodPost, "/"+resource+"/", fields, files, out)
}

// UpdateMultipart replaces a resource row via multipart/form-data.
func (c *Client) UpdateMultipart(ctx context.Context, sid, resource, id string, fields map[string]string, files map[string]FileAttachment, out any) error {
	return c.sendMultipart(ctx, sid, http.MethodPut, "/"+resource+"/"+id+"/", fields, files, out)
}

// FileAttachment is a named file carried in a multipart mutation.
type FileAttachment struct {
	Filename string
	Content  io.Reader
}

func (c *Client) sendMultipart(ctx context.Context, sid, method, path string, fields map[string]string, files map[string]FileAttachment, out any) error {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		for name, value := range fields {
			if err := writer.WriteField(name, value); err != nil {
				_ = pw.CloseWithError(err)
				return
			}
		}
		for name, file := range files {
			part, err := writer.CreateFormFile(name, file.Filename)
			if err != nil {
				_ = pw.CloseWithError(err)
				return
			}
			if _, err := io.Copy(part, file.Content); err != nil {
				_ = pw.CloseWithError(err)
				return
			}
		}
		_ = pw.CloseWithError(writer.Close())
	}()

	resp, err := c.Request(ctx, sid, method, path, nil, writer.FormDataContentType(), pr)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return decodeBody(resp.Body, path, out)
}

// UpdateOrderStatus moves an order to a new fulfillment status.
func (c *Client) UpdateOrderStatus(ctx context.Context, sid, orderID, status string) (domain.Order, error) {
	if !domain.IsValidOrderStatus(status) {
		return domain.Order{}, apperrors.InvalidInput("unknown order status: " + status)
	}
	var order domain.Order
	payload := map[string]string{"status": status}
	err := c.sendJSON(ctx, sid, http.MethodPut, "/orders/"+orderID+"/status/", payload, &order)
	return order, err
}

// FetchInvoice streams the order's invoice PDF. The response is handed back
// unparsed; the handler copies it straight through to the browser.
func (c *Client) FetchInvoice(ctx context.Context, sid, orderID string) (*http.Response, error) {
	return c.Request(ctx, sid, http.MethodGet, "/orders/"+orderID+"/invoice/", nil, "", nil)
}

// ModerateReview sets a review's moderation status.
func (c *Client) ModerateReview(ctx context.Context, sid, reviewID, status string) (domain.Review, error) {
	var review domain.Review
	payload := map[string]string{"status": status}
	err := c.sendJSON(ctx, sid, http.MethodPut, "/reviews/"+reviewID+"/status/", payload, &review)
	return review, err
}

// GetSettings fetches the store-wide settings object.
func (c *Client) GetSettings(ctx context.Context, sid string) (domain.Settings, error) {
	var settings domain.Settings
	err := c.getJSON(ctx, sid, "/settings/", nil, &settings)
	return settings, err
}

// UpdateSettings replaces the store-wide settings object.
func (c *Client) UpdateSettings(ctx context.Context, sid string, settings domain.Settings) (domain.Settings, error) {
	var updated domain.Settings
	err := c.sendJSON(ctx, sid, http.MethodPut, "/settings/", settings, &updated)
	return updated, err
}

func decodeBody(r io.Reader, path string, out any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := DecodeObject(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
