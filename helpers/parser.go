package helpers

import (
	"regexp"

	"github.com/pkg/errors"
)

var (
	mentionRegex   = regexp.MustCompile(`^<@!?(\d+)>$`)
	channelRegex   = regexp.MustCompile(`^<#(\d+)>$`)
	snowflakeRegex = regexp.MustCompile(`^\d+$`)
)

// ParseUserID extracts a user id from a mention like <@123> or <@!123>, or
// accepts a raw snowflake.
func ParseUserID(text string) (string, error) {
	if match := mentionRegex.FindStringSubmatch(text); match != nil {
		return match[1], nil
	}
	if snowflakeRegex.MatchString(text) {
		return text, nil
	}
	return "", errors.Errorf("%q is not a user mention or id", text)
}

// ParseChannelID extracts a channel id from a mention like <#123>, or
// accepts a raw snowflake.
func ParseChannelID(text string) (string, error) {
	if match := channelRegex.FindStringSubmatch(text); match != nil {
		return match[1], nil
	}
	if snowflakeRegex.MatchString(text) {
		return text, nil
	}
	return "", errors.Errorf("%q is not a channel mention or id", text)
}
