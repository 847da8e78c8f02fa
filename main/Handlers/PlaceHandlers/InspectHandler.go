package PlaceHandlers

import (
	"log"
	"net/http"

	"github.com/ItzBubschki/tr-backend/main/Handlers"
)

type InspectHandler struct {
	Resolver *Resolver
}

func (i *InspectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	placeKey := r.URL.Query().Get("placeKey")
	if placeKey == "" {
		http.Error(w, "Place key is required", http.StatusBadRequest)
		return
	}
	if _, _, ok := Decode(placeKey); !ok {
		http.Error(w, "Malformed place key", http.StatusBadRequest)
		return
	}

	place, err := i.Resolver.ResolveOne(r.Context(), placeKey)
	if err != nil {
		log.Printf("Failed to resolve %q: %v", placeKey, err)
		writeGatewayError(w, err)
		return
	}

	Handlers.WriteJSON(w, http.StatusOK, place)
}
