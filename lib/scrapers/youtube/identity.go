package youtube

import (
	"chandir/lib/channelref"
	"chandir/lib/htmlutil"
	"chandir/lib/source"

	"github.com/PuerkitoBio/goquery"
)

func parseIdentity(doc *goquery.Document, page string) source.Identity {
	var identity source.Identity

	identity.Title = htmlutil.MetaContent(doc, "og:title")
	if identity.Title == "" {
		identity.Title = submatch(embeddedTitle, page)
	}

	identity.Pfp = htmlutil.LinkHref(doc, "image_src")
	if identity.Pfp == "" {
		identity.Pfp = submatch(avatarThumbnail, page)
	}

	canonical := channelref.Normalize(htmlutil.LinkHref(doc, "canonical"))

	identity.Handle = submatch(canonicalUrlKey, page)
	if identity.Handle == "" && channelref.IsHandle(canonical) {
		identity.Handle = canonical
	}

	if channelref.IsStableID(canonical) {
		identity.ID = canonical
	} else {
		identity.ID = submatch(externalIdKey, page)
	}

	identity.Verified = verifiedBadge.MatchString(page) || verifiedTooltip.MatchString(page)
	return identity
}
