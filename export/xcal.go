package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/beevik/etree"
	"github.com/cyp0633/libcalevents/model"
	"github.com/emersion/go-ical"
)

// XCalNamespace is the RFC 6321 namespace.
const XCalNamespace = "urn:ietf:params:xml:ns:icalendar-2.0"

// XCal encodes events as an xCal document.
func XCal(events []model.Event, opts Options) ([]byte, error) {
	doc := ToXML(BuildCalendar(events, opts))
	doc.Indent(2)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to write xcal document: %w", err)
	}
	return out, nil
}

// ToXML converts an iCalendar tree to an xCal document.
func ToXML(cal *ical.Calendar) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("icalendar")
	root.CreateAttr("xmlns", XCalNamespace)
	appendComponent(root, cal.Component)
	return doc
}

func appendComponent(parent *etree.Element, comp *ical.Component) {
	elem := parent.CreateElement(strings.ToLower(comp.Name))

	if len(comp.Props) > 0 {
		props := elem.CreateElement("properties")
		names := make([]string, 0, len(comp.Props))
		for name := range comp.Props {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			for _, prop := range comp.Props[name] {
				appendProp(props, prop)
			}
		}
	}

	if len(comp.Children) > 0 {
		children := elem.CreateElement("components")
		for _, child := range comp.Children {
			appendComponent(children, child)
		}
	}
}

func appendProp(parent *etree.Element, prop ical.Prop) {
	elem := parent.CreateElement(strings.ToLower(prop.Name))

	params := make([]string, 0, len(prop.Params))
	for name := range prop.Params {
		if name == ical.ParamValue {
			continue
		}
		params = append(params, name)
	}
	if len(params) > 0 {
		sort.Strings(params)
		pe := elem.CreateElement("parameters")
		for _, name := range params {
			p := pe.CreateElement(strings.ToLower(name))
			for _, v := range prop.Params[name] {
				p.CreateElement("text").SetText(v)
			}
		}
	}

	switch valueType(prop) {
	case ical.ValueDateTime:
		elem.CreateElement("date-time").SetText(xmlDateTime(prop.Value))
	case ical.ValueDate:
		elem.CreateElement("date").SetText(xmlDate(prop.Value))
	case ical.ValueDuration:
		elem.CreateElement("duration").SetText(prop.Value)
	case ical.ValueCalendarAddress:
		elem.CreateElement("cal-address").SetText(prop.Value)
	case ical.ValueRecurrence:
		appendRecur(elem.CreateElement("recur"), prop.Value)
	default:
		elem.CreateElement("text").SetText(prop.Value)
	}
}

// appendRecur splits RRULE text into one element per part and value.
func appendRecur(recur *etree.Element, value string) {
	for _, part := range strings.Split(value, ";") {
		key, val, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		key = strings.ToLower(key)
		if key == "until" {
			if len(val) == len("20060102") {
				recur.CreateElement(key).SetText(xmlDate(val))
			} else {
				recur.CreateElement(key).SetText(xmlDateTime(val))
			}
			continue
		}
		for _, v := range strings.Split(val, ",") {
			recur.CreateElement(key).SetText(v)
		}
	}
}

func valueType(prop ical.Prop) ical.ValueType {
	if t := prop.ValueType(); t != ical.ValueDefault {
		return t
	}
	switch prop.Name {
	case ical.PropDateTimeStamp, ical.PropDateTimeStart, ical.PropDateTimeEnd, ical.PropRecurrenceID:
		return ical.ValueDateTime
	case ical.PropDuration, ical.PropTrigger:
		return ical.ValueDuration
	case ical.PropAttendee, ical.PropOrganizer:
		return ical.ValueCalendarAddress
	case ical.PropRecurrenceRule:
		return ical.ValueRecurrence
	}
	return ical.ValueText
}

// xmlDateTime turns 20060102T150405Z into 2006-01-02T15:04:05Z.
func xmlDateTime(v string) string {
	if len(v) < len("20060102T150405") {
		return v
	}
	return v[0:4] + "-" + v[4:6] + "-" + v[6:8] + "T" + v[9:11] + ":" + v[11:13] + ":" + v[13:]
}

// xmlDate turns 20060102 into 2006-01-02.
func xmlDate(v string) string {
	if len(v) != len("20060102") {
		return v
	}
	return v[0:4] + "-" + v[4:6] + "-" + v[6:8]
}
