package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type attachmentLinksBody struct {
	AttachmentIDs []string `json:"attachmentIds"`
}

func (s *Server) uploadImages(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": true, "errorCode": "malformedBody"})
		return
	}

	files := form.File["images"]
	imageIDs := make([]string, 0, len(files))
	for _, header := range files {
		f, err := header.Open()
		if err != nil {
			continue
		}
		id, err := s.uploads.Save(f)
		f.Close()
		if err != nil {
			continue
		}
		imageIDs = append(imageIDs, id)
	}

	c.JSON(http.StatusOK, gin.H{"error": false, "imageIds": imageIDs})
}

func (s *Server) attachmentLinks(c *gin.Context) {
	var body attachmentLinksBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": true, "errorCode": "malformedBody"})
		return
	}

	links := make(map[string]string, len(body.AttachmentIDs))
	for _, id := range body.AttachmentIDs {
		link, err := s.uploads.PresignedLink(id)
		if err != nil {
			continue
		}
		links[id] = link
	}
	c.JSON(http.StatusOK, gin.H{"error": false, "links": links})
}
