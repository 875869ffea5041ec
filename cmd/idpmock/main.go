// This is a **mock identity provider**, designed to mint RS256 tokens
// and publish the matching JWKS document, simulating a third-party
// login flow for local development.
package main

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"log"
	"math/big"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultPort     = "8081" // Default port for the identity provider
	defaultAudience = "quizhive-api"
	keyID           = "idpmock-1"
)

// TokenResponse represents the response structure
type TokenResponse struct {
	Token string `json:"token"`
}

type jwksDocument struct {
	Keys []jwksKey `json:"keys"`
}

type jwksKey struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type provider struct {
	key      *rsa.PrivateKey
	issuer   string
	audience string
}

// tokenHandler generates an RS256 JWT for the requested email and
// returns it in a JSON response.
func (p *provider) tokenHandler(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		http.Error(w, "missing email parameter", http.StatusBadRequest)
		return
	}

	token, err := p.generateToken(email)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	resp := TokenResponse{Token: token}
	w.Header().Set("Content-Type", "application/json")
	err = json.NewEncoder(w).Encode(resp)
	if err != nil {
		http.Error(w, "Failed to encode token", http.StatusInternalServerError)
	}
}

// jwksHandler publishes the public half of the signing key.
func (p *provider) jwksHandler(w http.ResponseWriter, _ *http.Request) {
	pub := &p.key.PublicKey
	doc := jwksDocument{Keys: []jwksKey{{
		Kty: "RSA",
		Use: "sig",
		Kid: keyID,
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}}}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		http.Error(w, "Failed to encode keys", http.StatusInternalServerError)
	}
}

func (p *provider) generateToken(email string) (string, error) {
	claims := jwt.MapClaims{
		"sub":   email,
		"email": email,
		"aud":   p.audience,
		"iss":   p.issuer,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(time.Hour * 24).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = keyID
	return token.SignedString(p.key)
}

func main() {
	port := os.Getenv("IDP_PORT")
	if port == "" {
		port = defaultPort
	}
	audience := os.Getenv("IDP_AUDIENCE")
	if audience == "" {
		audience = defaultAudience
	}

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		log.Fatal("failed to generate signing key: ", err)
	}

	p := &provider{
		key:      key,
		issuer:   "http://localhost:" + port + "/",
		audience: audience,
	}

	http.HandleFunc("/token", p.tokenHandler)
	http.HandleFunc("/.well-known/jwks.json", p.jwksHandler)

	log.Printf("Identity provider mock running on port %s", port)
	log.Fatal(http.ListenAndServe(":"+port, nil))
}
