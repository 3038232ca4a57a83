package oauth

import (
	"encoding/json"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/linkedin"

	"github.com/victor-wayward/ironode/internal/core/domain"
	"github.com/victor-wayward/ironode/internal/infra/config"
)

// Provider bundles one external identity provider: its OAuth2 endpoints and
// the mapping from its userinfo document to a normalized profile.
type Provider struct {
	Name        domain.Provider
	Config      *oauth2.Config
	UserInfoURL string
	MapProfile  func(data []byte) (domain.FederatedProfile, error)
}

// NewProviders builds the configured providers. Providers without client
// credentials are left out, so deployments enable consent flows per
// provider.
func NewProviders(social config.SocialSettings, siteURL string) map[domain.Provider]*Provider {
	providers := make(map[domain.Provider]*Provider)

	if social.Facebook.ClientID != "" {
		providers[domain.ProviderFacebook] = &Provider{
			Name: domain.ProviderFacebook,
			Config: &oauth2.Config{
				ClientID:     social.Facebook.ClientID,
				ClientSecret: social.Facebook.ClientSecret,
				RedirectURL:  callbackURL(siteURL, domain.ProviderFacebook),
				Scopes:       []string{"email", "public_profile"},
				Endpoint:     facebook.Endpoint,
			},
			UserInfoURL: "https://graph.facebook.com/me?fields=id,email,first_name,last_name",
			MapProfile:  mapFacebookProfile,
		}
	}

	if social.Google.ClientID != "" {
		providers[domain.ProviderGoogle] = &Provider{
			Name: domain.ProviderGoogle,
			Config: &oauth2.Config{
				ClientID:     social.Google.ClientID,
				ClientSecret: social.Google.ClientSecret,
				RedirectURL:  callbackURL(siteURL, domain.ProviderGoogle),
				Scopes: []string{
					"https://www.googleapis.com/auth/userinfo.email",
					"https://www.googleapis.com/auth/userinfo.profile",
				},
				Endpoint: google.Endpoint,
			},
			UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
			MapProfile:  mapGoogleProfile,
		}
	}

	if social.LinkedIn.ClientID != "" {
		providers[domain.ProviderLinkedIn] = &Provider{
			Name: domain.ProviderLinkedIn,
			Config: &oauth2.Config{
				ClientID:     social.LinkedIn.ClientID,
				ClientSecret: social.LinkedIn.ClientSecret,
				RedirectURL:  callbackURL(siteURL, domain.ProviderLinkedIn),
				Scopes:       []string{"openid", "profile", "email"},
				Endpoint:     linkedin.Endpoint,
			},
			UserInfoURL: "https://api.linkedin.com/v2/userinfo",
			MapProfile:  mapLinkedInProfile,
		}
	}

	return providers
}

func callbackURL(siteURL string, provider domain.Provider) string {
	return fmt.Sprintf("%s/auth/%s/callback", siteURL, provider)
}

func mapFacebookProfile(data []byte) (domain.FederatedProfile, error) {
	var doc struct {
		ID        string `json:"id"`
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.FederatedProfile{}, fmt.Errorf("decode facebook profile: %w", err)
	}
	if doc.ID == "" {
		return domain.FederatedProfile{}, fmt.Errorf("facebook profile without id")
	}
	return domain.FederatedProfile{
		Provider:   domain.ProviderFacebook,
		ExternalID: doc.ID,
		Email:      doc.Email,
		GivenName:  doc.FirstName,
		FamilyName: doc.LastName,
	}, nil
}

func mapGoogleProfile(data []byte) (domain.FederatedProfile, error) {
	var doc struct {
		ID         string `json:"id"`
		Email      string `json:"email"`
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.FederatedProfile{}, fmt.Errorf("decode google profile: %w", err)
	}
	if doc.ID == "" {
		return domain.FederatedProfile{}, fmt.Errorf("google profile without id")
	}
	return domain.FederatedProfile{
		Provider:   domain.ProviderGoogle,
		ExternalID: doc.ID,
		Email:      doc.Email,
		GivenName:  doc.GivenName,
		FamilyName: doc.FamilyName,
	}, nil
}

// LinkedIn serves the OpenID Connect userinfo document; the stable subject
// identifier arrives as "sub".
func mapLinkedInProfile(data []byte) (domain.FederatedProfile, error) {
	var doc struct {
		Sub        string `json:"sub"`
		Email      string `json:"email"`
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.FederatedProfile{}, fmt.Errorf("decode linkedin profile: %w", err)
	}
	if doc.Sub == "" {
		return domain.FederatedProfile{}, fmt.Errorf("linkedin profile without subject")
	}
	return domain.FederatedProfile{
		Provider:   domain.ProviderLinkedIn,
		ExternalID: doc.Sub,
		Email:      doc.Email,
		GivenName:  doc.GivenName,
		FamilyName: doc.FamilyName,
	}, nil
}
