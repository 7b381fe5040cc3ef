package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/hagall-spatial/models"
	"github.com/aukilabs/hagall-spatial/quadtree"
)

const spacesPath = "/spaces/"

type spaceDebugResponse struct {
	models.SpaceSummary
	Index quadtree.DebugInfo `json:"index"`
}

// HandleSpaces responds with the summaries of the hosted spaces.
func HandleSpaces(spaces *models.SpaceStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list := spaces.Spaces()

		summaries := make([]models.SpaceSummary, len(list))
		for i, s := range list {
			summaries[i] = s.Summary()
		}
		WriteJSON(w, http.StatusOK, summaries)
	}
}

// HandleSpace responds with the debug info of the space index. The space id is
// read from the path: /spaces/{id}.
func HandleSpace(spaces *models.SpaceStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rawID := strings.TrimPrefix(r.URL.Path, spacesPath)

		id, err := strconv.ParseUint(rawID, 10, 32)
		if err != nil {
			BadRequest(w, errors.New("invalid space id").
				WithTag("space_id", rawID).
				Wrap(err))
			return
		}

		space, err := spaces.Get(uint32(id))
		if errors.IsType(err, models.ErrTypeSpaceNotFound) {
			NotFound(w, ErrNotFound)
			return
		} else if err != nil {
			InternalServerError(w, err)
			return
		}

		WriteJSON(w, http.StatusOK, spaceDebugResponse{
			SpaceSummary: space.Summary(),
			Index:        space.DebugInfo(),
		})
	}
}
