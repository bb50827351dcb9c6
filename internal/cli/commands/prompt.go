package commands

import (
	"github.com/AlecAivazis/survey/v2"
)

// confirmFunc asks a yes/no question
type confirmFunc func(message string) (bool, error)

// inputFunc asks for a required line of text
type inputFunc func(message, help string) (string, error)

func surveyConfirm(message string) (bool, error) {
	ok := true
	prompt := &survey.Confirm{
		Message: message,
		Default: true,
	}
	if err := survey.AskOne(prompt, &ok); err != nil {
		return false, err
	}
	return ok, nil
}

func surveyInput(message, help string) (string, error) {
	var value string
	prompt := &survey.Input{
		Message: message,
		Help:    help,
	}
	if err := survey.AskOne(prompt, &value, survey.WithValidator(survey.Required)); err != nil {
		return "", err
	}
	return value, nil
}
