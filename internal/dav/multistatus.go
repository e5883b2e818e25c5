package dav

import (
	"net/http"

	"github.com/beevik/etree"
)

const (
	nsDAV       = "DAV:"
	nsCalDAV    = "urn:ietf:params:xml:ns:caldav"
	nsCalServer = "http://calendarserver.org/ns/"
)

// multistatus accumulates D:response elements for a 207 reply.
type multistatus struct {
	doc  *etree.Document
	root *etree.Element
}

func newMultistatus() *multistatus {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("D:multistatus")
	root.CreateAttr("xmlns:D", nsDAV)
	root.CreateAttr("xmlns:C", nsCalDAV)
	root.CreateAttr("xmlns:CS", nsCalServer)
	return &multistatus{doc: doc, root: root}
}

// response appends a D:response for href and returns its D:prop
// element, ready to be populated. All properties are reported with a
// 200 propstat; requested-but-unknown properties are simply absent.
func (m *multistatus) response(href string) *etree.Element {
	resp := m.root.CreateElement("D:response")
	resp.CreateElement("D:href").SetText(href)
	propstat := resp.CreateElement("D:propstat")
	prop := propstat.CreateElement("D:prop")
	propstat.CreateElement("D:status").SetText("HTTP/1.1 200 OK")
	return prop
}

func (m *multistatus) write(w http.ResponseWriter) error {
	w.Header().Set("Content-Type", `application/xml; charset="utf-8"`)
	w.Header().Set("DAV", davCapabilities)
	w.WriteHeader(http.StatusMultiStatus)
	m.doc.Indent(2)
	_, err := m.doc.WriteTo(w)
	return err
}

func textChild(prop *etree.Element, tag, value string) {
	prop.CreateElement(tag).SetText(value)
}

// hrefChild nests tag > D:href > value, the shape shared by
// principal and home-set properties.
func hrefChild(prop *etree.Element, tag, href string) {
	prop.CreateElement(tag).CreateElement("D:href").SetText(href)
}

func collectionType(prop *etree.Element) {
	prop.CreateElement("D:resourcetype").CreateElement("D:collection")
}

func principalType(prop *etree.Element) {
	rt := prop.CreateElement("D:resourcetype")
	rt.CreateElement("D:collection")
	rt.CreateElement("D:principal")
}

func calendarType(prop *etree.Element) {
	rt := prop.CreateElement("D:resourcetype")
	rt.CreateElement("D:collection")
	rt.CreateElement("C:calendar")
}

func componentSet(prop *etree.Element, names ...string) {
	set := prop.CreateElement("C:supported-calendar-component-set")
	for _, name := range names {
		set.CreateElement("C:comp").CreateAttr("name", name)
	}
}
