// gaming-lobby-system/services/entitlement_client.go
package services

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"gaming-lobby-system/utils"
)

// EntitlementClient asks the entitlement service whether a user holds
// the elevated tier required to host tournaments. Payments live
// entirely on the other side of this boolean.
type EntitlementClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

type entitlementResponse struct {
	Allowed bool `json:"allowed"`
}

func NewEntitlementClient(baseURL, token string) *EntitlementClient {
	return &EntitlementClient{
		BaseURL: baseURL,
		Token:   token,
		Client:  utils.HTTPClient,
	}
}

// CanHostTournaments calls the entitlement service's capability check.
func (c *EntitlementClient) CanHostTournaments(userID string) (bool, error) {
	url := fmt.Sprintf("%s/entitlements/%s/host-tournaments", c.BaseURL, userID)

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.Client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		log.Printf("EntitlementService returned %d for user %s: %s", resp.StatusCode, userID, string(body))
		return false, fmt.Errorf("entitlement check failed: %d", resp.StatusCode)
	}

	var out entitlementResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return false, err
	}
	return out.Allowed, nil
}
